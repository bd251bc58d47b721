package adminapi

import (
	"fmt"

	"github.com/yosida95/uritemplate/v3"
)

// Path templates for every backend endpoint. Placeholders use reserved
// expansion so values are substituted as given; only characters that cannot
// appear in a URL at all are percent-encoded.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathLogout   = "/auth/logout"
	PathRefresh  = "/auth/refresh"

	PathChat              = "/chat"
	PathChatHistory       = "/chat/history"
	PathChatConversations = "/chat/conversations"

	PathAdminStats = "/admin/stats"

	PathListRoles       = "/rbac/list_roles"
	PathSetRoles        = "/rbac/set_roles"
	PathListPermissions = "/rbac/list_permissions{?module}"
	PathRolePermissions = "/rbac/roles/{+role_code}/permissions"
	PathUserRoles       = "/rbac/users/{+username}/roles"

	PathKBList        = "/kb/list"
	PathKBCreate      = "/kb/create"
	PathKBUpdate      = "/kb/{+kb_id}/update"
	PathKBDelete      = "/kb/{+kb_id}/delete"
	PathKBDetail      = "/kb/{+kb_id}/detail"
	PathKBReembed     = "/kb/{+kb_id}/reembed"
	PathKBIngest      = "/kb/ingest"
	PathKBIngestBatch = "/kb/ingest/batch"
)

var templates = map[string]*uritemplate.Template{}

func init() {
	for _, p := range []string{PathListPermissions, PathRolePermissions, PathUserRoles, PathKBUpdate, PathKBDelete, PathKBDetail, PathKBReembed} {
		templates[p] = uritemplate.MustNew(p)
	}
}

// BuildPath expands a path template. Variables absent from vars expand to
// nothing, which for query expressions drops the parameter entirely.
func BuildPath(tmpl string, vars map[string]string) (string, error) {
	t, ok := templates[tmpl]
	if !ok {
		var err error
		if t, err = uritemplate.New(tmpl); err != nil {
			return "", fmt.Errorf("parse path template %q: %w", tmpl, err)
		}
	}
	values := uritemplate.Values{}
	for k, v := range vars {
		if v == "" {
			continue
		}
		values.Set(k, uritemplate.String(v))
	}
	out, err := t.Expand(values)
	if err != nil {
		return "", fmt.Errorf("expand path template %q: %w", tmpl, err)
	}
	return out, nil
}
