package config

import (
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is used when KB_API_BASE_URL is unset.
	DefaultAPIBaseURL = "http://localhost:8000"
	defaultAPITimeout = 30 * time.Second
)

// APIConfig describes how to reach the knowledge-base backend.
type APIConfig struct {
	// BaseURL is the root every endpoint path is appended to.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds a single backend request. Uploads share the same limit.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize trims the base URL and restores defaults for empty values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
}

// AuthConfig controls the auth endpoints the session layer calls and how
// their responses are mapped onto a token and user profile.
type AuthConfig struct {
	LoginPath    string `env:"LOGIN_PATH"    envDefault:"/auth/login"`
	RegisterPath string `env:"REGISTER_PATH" envDefault:"/auth/register"`
	LogoutPath   string `env:"LOGOUT_PATH"   envDefault:"/auth/logout"`
	// ValidatePath is called with the persisted token on startup to confirm it is still accepted.
	ValidatePath string `env:"VALIDATE_PATH" envDefault:"/auth/me"`

	// TokenExpr and UserExpr are JMESPath expressions evaluated against the login response.
	TokenExpr string `env:"TOKEN_EXPR" envDefault:"token || access_token"`
	UserExpr  string `env:"USER_EXPR"  envDefault:"user"`
	// ProfileExpr is evaluated against the validate response.
	ProfileExpr string `env:"PROFILE_EXPR" envDefault:"user || @"`

	// RemoteLogout enables a best-effort POST to LogoutPath when a session ends.
	RemoteLogout bool `env:"REMOTE_LOGOUT" envDefault:"false"`
}

// Sanitize restores defaults for blank values.
func (c *AuthConfig) Sanitize() {
	c.LoginPath = orDefault(c.LoginPath, "/auth/login")
	c.RegisterPath = orDefault(c.RegisterPath, "/auth/register")
	c.LogoutPath = orDefault(c.LogoutPath, "/auth/logout")
	c.ValidatePath = orDefault(c.ValidatePath, "/auth/me")
	c.TokenExpr = orDefault(c.TokenExpr, "token || access_token")
	c.UserExpr = orDefault(c.UserExpr, "user")
	c.ProfileExpr = orDefault(c.ProfileExpr, "user || @")
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
