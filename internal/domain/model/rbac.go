//revive:disable-next-line:var-naming // matches the backend resource vocabulary
package model

import (
	"strings"
)

// Role is an RBAC role as listed by the backend.
type Role struct {
	ID          int64  `json:"id,omitempty"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsSystem    Flag   `json:"is_system,omitempty"`
}

// Permission is a single grantable capability.
type Permission struct {
	ID          int64  `json:"id,omitempty"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Module      string `json:"module,omitempty"`
	Description string `json:"description,omitempty"`
	Resource    string `json:"resource,omitempty"`
	IsSystem    Flag   `json:"is_system,omitempty"`
}

// RoleList is the body of the list-roles endpoint.
type RoleList struct {
	Roles []Role `json:"roles"`
}

// PermissionList is the body of the list-permissions endpoint.
type PermissionList struct {
	Permissions []Permission `json:"permissions"`
}

// RolePermissions carries the permission codes granted to a role.
type RolePermissions struct {
	PermCodes []string `json:"perm_codes"`
}

// UserRoles carries the role codes assigned to a user.
type UserRoles struct {
	Roles []string `json:"roles"`
}

// RoleCodes is the body of the set-user-roles endpoint.
type RoleCodes struct {
	RoleCodes []string `json:"role_codes"`
}

// RoleInput is the body of the set-roles endpoint (create or update a role).
type RoleInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Flag decodes the backend's 0/1 integer booleans as well as JSON true/false.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "1", "true", `"1"`, `"true"`:
		*f = true
	default:
		*f = false
	}
	return nil
}

// FilterRoles returns roles whose name, code or description contains term (case-insensitive).
func FilterRoles(roles []Role, term string) []Role {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return roles
	}
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if containsFold(term, r.Name, r.Code, r.Description) {
			out = append(out, r)
		}
	}
	return out
}

// FilterPermissions keeps permissions in module (when set) matching term on name, code or description.
func FilterPermissions(perms []Permission, module, term string) []Permission {
	term = strings.ToLower(strings.TrimSpace(term))
	module = strings.TrimSpace(module)
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if module != "" && module != "all" && p.Module != module {
			continue
		}
		if term != "" && !containsFold(term, p.Name, p.Code, p.Description) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PermissionModules returns the distinct modules in first-seen order.
func PermissionModules(perms []Permission) []string {
	seen := make(map[string]struct{}, len(perms))
	var out []string
	for _, p := range perms {
		if p.Module == "" {
			continue
		}
		if _, ok := seen[p.Module]; ok {
			continue
		}
		seen[p.Module] = struct{}{}
		out = append(out, p.Module)
	}
	return out
}

func containsFold(lowerTerm string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), lowerTerm) {
			return true
		}
	}
	return false
}
