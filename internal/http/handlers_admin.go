package httpx

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/target/kb-assistant-web/internal/domain/model"
	"github.com/target/kb-assistant-web/internal/http/validation"
	"github.com/target/kb-assistant-web/internal/service"
)

var roleCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// AdminDashboard shows the stats summary and quick actions.
func (h *UIHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	dash, err := c.Dashboard.Load(backendCtx(r))
	if err != nil && sessionLost(w, r, c) {
		return
	}
	data := basePageData(r, metaFor(PageAdmin, "Administration"))
	data["Dashboard"] = dash
	h.setLoadError(r, data, err, "dashboard")
	h.renderPage(w, r, data)
}

// setLoadError records a failed fetch on the page instead of substituting placeholder data.
func (h *UIHandlers) setLoadError(r *http.Request, data map[string]any, err error, what string) {
	if err == nil {
		return
	}
	h.logger().WarnContext(r.Context(), "admin page load failed", "page", what, "error", err)
	data["LoadError"] = service.UserMessage(err)
}

type roleFormData struct {
	Code        string
	Name        string
	Description string
}

// RolesPage lists roles, optionally filtered by ?q.
func (h *UIHandlers) RolesPage(w http.ResponseWriter, r *http.Request) {
	h.renderRoles(w, r, roleFormData{}, nil)
}

func (h *UIHandlers) renderRoles(w http.ResponseWriter, r *http.Request, form roleFormData, errs map[string]string) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := c.Admin.ListRoles(backendCtx(r))
	if err != nil && sessionLost(w, r, c) {
		return
	}
	data := basePageData(r, metaFor(PageRoles, "Roles"))
	data["Roles"] = model.FilterRoles(list.Roles, q)
	data["Query"] = q
	data["Form"] = form
	data["Errors"] = nonNilErrors(errs)
	h.setLoadError(r, data, err, "roles")
	h.renderPage(w, r, data)
}

// RoleSave creates or updates a role.
func (h *UIHandlers) RoleSave(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.finishAction(w, r, actionOutcome{Err: err, Redirect: "/admin/roles"})
		return
	}
	form := roleFormData{
		Code:        strings.TrimSpace(r.PostFormValue("code")),
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	fv := validation.New().
		Validate("code", form.Code, validation.Required("Role code", 64), validation.Pattern("Role code", roleCodePattern)).
		Validate("name", form.Name, validation.Required("Role name", 128)).
		Validate("description", form.Description, validation.MaxLength("Description", 512))
	if !fv.Valid() {
		h.renderRoles(w, r, form, fv.Errors())
		return
	}

	_, err := c.Admin.SetRoles(backendCtx(r), model.RoleInput(form))
	h.finishAction(w, r, actionOutcome{Err: err, Success: "Role " + form.Code + " saved.", Redirect: "/admin/roles"})
}

// UsersPage looks up a user's roles with ?username.
func (h *UIHandlers) UsersPage(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	ctx := backendCtx(r)
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	data := basePageData(r, metaFor(PageUsers, "Users"))
	data["Username"] = username
	data["Errors"] = map[string]string{}
	data["Assigned"] = []string{}

	roles, err := c.Admin.ListRoles(ctx)
	if err == nil && username != "" {
		var assigned model.UserRoles
		if assigned, err = c.Admin.GetUserRoles(ctx, username); err == nil {
			data["Assigned"] = assigned.Roles
			data["LookedUp"] = true
		}
	}
	if err != nil && sessionLost(w, r, c) {
		return
	}
	data["Roles"] = roles.Roles
	h.setLoadError(r, data, err, "users")
	h.renderPage(w, r, data)
}

// UserRolesSave replaces the roles of {username}.
func (h *UIHandlers) UserRolesSave(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	username := strings.TrimSpace(r.PathValue("username"))
	back := "/admin/users?username=" + url.QueryEscape(username)
	if err := r.ParseForm(); err != nil {
		h.finishAction(w, r, actionOutcome{Err: err, Redirect: back})
		return
	}
	_, err := c.Admin.SetUserRoles(backendCtx(r), username, cleanCodes(r.PostForm["role_codes"]))
	h.finishAction(w, r, actionOutcome{Err: err, Success: "Roles updated for " + username + ".", Redirect: back})
}

// PermissionsPage lists permissions (?module, ?q) and, with ?role, the role's grants.
func (h *UIHandlers) PermissionsPage(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	ctx := backendCtx(r)
	qv := r.URL.Query()
	module := strings.TrimSpace(qv.Get("module"))
	term := strings.TrimSpace(qv.Get("q"))
	role := strings.TrimSpace(qv.Get("role"))

	data := basePageData(r, metaFor(PagePermissions, "Permissions"))
	data["Module"] = module
	data["Query"] = term
	data["Role"] = role
	data["Granted"] = []string{}

	roles, err := c.Admin.ListRoles(ctx)
	var perms model.PermissionList
	if err == nil {
		perms, err = c.Admin.ListPermissions(ctx, "")
	}
	if err == nil && role != "" {
		var granted model.RolePermissions
		if granted, err = c.Admin.GetRolePermissions(ctx, role); err == nil {
			data["Granted"] = granted.PermCodes
		}
	}
	if err != nil && sessionLost(w, r, c) {
		return
	}
	data["Roles"] = roles.Roles
	data["Modules"] = model.PermissionModules(perms.Permissions)
	data["Permissions"] = model.FilterPermissions(perms.Permissions, module, term)
	h.setLoadError(r, data, err, "permissions")
	h.renderPage(w, r, data)
}

// RolePermissionsSave replaces the permissions granted to {role}.
func (h *UIHandlers) RolePermissionsSave(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	role := strings.TrimSpace(r.PathValue("role"))
	back := "/admin/permissions?role=" + url.QueryEscape(role)
	if err := r.ParseForm(); err != nil {
		h.finishAction(w, r, actionOutcome{Err: err, Redirect: back})
		return
	}
	_, err := c.Admin.SetRolePermissions(backendCtx(r), role, cleanCodes(r.PostForm["perm_codes"]))
	h.finishAction(w, r, actionOutcome{Err: err, Success: "Permissions updated for " + role + ".", Redirect: back})
}

// cleanCodes trims and de-duplicates submitted codes, keeping their order.
func cleanCodes(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
