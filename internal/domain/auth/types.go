// Package auth holds the session model shared by the web front end and the CLI.
package auth

import (
	"regexp"
	"strings"

	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

// Status is the lifecycle state of a client session.
type Status string

const (
	// StatusUnknown means the persisted token has not been resolved yet.
	StatusUnknown Status = "unknown"
	// StatusAuthenticating means a login or the initial resolution is in flight.
	StatusAuthenticating Status = "authenticating"
	// StatusAuthenticated means a token and user are held.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means no session exists.
	StatusAnonymous Status = "anonymous"
)

// Resolved reports whether the status is final (authenticated or anonymous).
func (s Status) Resolved() bool {
	return s == StatusAuthenticated || s == StatusAnonymous
}

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User is the profile returned by the backend on login.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n
	}
	return u.Username
}

// Session is an immutable snapshot of a client's auth state.
// Authenticated implies Token != "" and User != nil.
type Session struct {
	Token  string `json:"-"`
	User   *User  `json:"user,omitempty"`
	Status Status `json:"status"`
}

// Authenticated reports whether the snapshot holds a usable session.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.User != nil
}

// Credentials is the transient login input. It is never persisted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Normalize trims the username; passwords are taken verbatim.
func (c Credentials) Normalize() Credentials {
	c.Username = strings.TrimSpace(c.Username)
	return c
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return apperrors.Validation("username and password are required")
	}
	return nil
}

// RegistrationForm is the input of the register operation.
type RegistrationForm struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	Phone           string
	FullName        string
}

// Validate applies the registration rules before any network call.
func (f RegistrationForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return apperrors.ValidationField("username", "username is required")
	}
	if f.Password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	if len([]rune(f.Password)) < MinPasswordLength {
		return apperrors.ValidationField("password", "password must be at least 6 characters")
	}
	if f.Password != f.ConfirmPassword {
		return apperrors.ValidationField("confirm_password", "passwords do not match")
	}
	if email := strings.TrimSpace(f.Email); email != "" && !emailPattern.MatchString(email) {
		return apperrors.ValidationField("email", "email address is not valid")
	}
	return nil
}

// Profile is the registration payload sent to the backend. The confirmation is dropped.
type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Profile converts the form into the wire payload.
func (f RegistrationForm) Profile() Profile {
	return Profile{
		Username: strings.TrimSpace(f.Username),
		Password: f.Password,
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		FullName: strings.TrimSpace(f.FullName),
	}
}

// Result is the outcome of login and register. Error is set only when Success is false.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Failed builds a failed Result.
func Failed(msg string) Result {
	return Result{Error: msg}
}

// Succeeded is the successful Result.
func Succeeded() Result {
	return Result{Success: true}
}
