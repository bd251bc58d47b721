package httpx

// Page identifiers used in templates and navigation.
const (
	PageHome            = "home"
	PageLogin           = "login"
	PageRegister        = "register"
	PageRegisterSuccess = "register-success"
	PageChat            = "chat"

	// Admin pages.
	PageAdmin       = "admin"
	PageRoles       = "roles"
	PageUsers       = "users"
	PagePermissions = "permissions"
	PageKB          = "kb"
	PageKBDetail    = "kb-detail"
)

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
)

// registerRedirectDelay is how long the registration success page stays before /login.
const registerRedirectDelay = "2"

var contentTemplates = map[string]string{
	PageHome:            "home-content",
	PageLogin:           "login-content",
	PageRegister:        "register-content",
	PageRegisterSuccess: "register-success-content",
	PageChat:            "chat-content",
	PageAdmin:           "admin-content",
	PageRoles:           "roles-content",
	PageUsers:           "users-content",
	PagePermissions:     "permissions-content",
	PageKB:              "kb-content",
	PageKBDetail:        "kb-detail-content",
}

// ContentTemplateFor maps a page id to its content template, defaulting to home.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "home-content"
}

// isAdminPage reports whether a page belongs under the admin layout navigation.
func isAdminPage(page string) bool {
	switch page {
	case PageAdmin, PageRoles, PageUsers, PagePermissions, PageKB, PageKBDetail:
		return true
	default:
		return false
	}
}
