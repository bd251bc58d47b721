package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/net/publicsuffix"

	"github.com/target/kb-assistant-web/config"
	"github.com/target/kb-assistant-web/internal/service"
)

// logLevel is shared so ApplyLogLevel can adjust the default logger after config loads.
var logLevel = new(slog.LevelVar)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// ApplyLogLevel switches the logger created by InitLogger to the configured level.
func ApplyLogLevel(cfg *config.AppConfig) {
	if cfg == nil {
		return
	}
	logLevel.Set(cfg.Observability.SlogLevel())
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects configuration the server cannot start with.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	var errs []error
	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("KB_API_BASE_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("KB_API_BASE_URL: unsupported scheme %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("KB_API_BASE_URL: host is required"))
	}
	if err := validateCookieDomain(cfg.HTTP.CookieDomain); err != nil {
		errs = append(errs, err)
	}
	if err := service.ValidateMapping(ResponseMapping(cfg.Auth)); err != nil {
		errs = append(errs, fmt.Errorf("auth response mapping: %w", err))
	}
	return errors.Join(errs...)
}

// validateCookieDomain rejects a cookie domain browsers would refuse, such as a
// bare public suffix. Single-label hosts and IPs are left to the browser.
func validateCookieDomain(domain string) error {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if d == "" || !strings.Contains(d, ".") || net.ParseIP(d) != nil {
		return nil
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN: %w", err)
	}
	return nil
}

// AuthPaths maps the auth config onto the session layer's endpoints.
func AuthPaths(a config.AuthConfig) service.AuthPaths {
	return service.AuthPaths{
		Login:    a.LoginPath,
		Register: a.RegisterPath,
		Logout:   a.LogoutPath,
		Validate: a.ValidatePath,
	}
}

// ResponseMapping maps the configured JMESPath expressions.
func ResponseMapping(a config.AuthConfig) service.ResponseMapping {
	return service.ResponseMapping{Token: a.TokenExpr, User: a.UserExpr, Profile: a.ProfileExpr}
}
