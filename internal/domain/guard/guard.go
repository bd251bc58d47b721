// Package guard decides what a route shows for a given session status.
// Decisions are pure: the same kind and status always yield the same outcome.
package guard

import "github.com/target/kb-assistant-web/internal/domain/auth"

const (
	// LoginPath is where anonymous visitors of protected routes are sent.
	LoginPath = "/login"
	// LandingPath is where authenticated visitors of public-only routes are sent.
	LandingPath = "/chat"
)

// Kind distinguishes the two guard flavours.
type Kind int

const (
	// Protected routes require an authenticated session.
	Protected Kind = iota + 1
	// PublicOnly routes are only shown to anonymous visitors (login, register).
	PublicOnly
)

func (k Kind) String() string {
	switch k {
	case Protected:
		return "protected"
	case PublicOnly:
		return "public"
	default:
		return "unknown"
	}
}

// Outcome is what the guarded route should do.
type Outcome int

const (
	// Render shows the wrapped content.
	Render Outcome = iota + 1
	// Loading shows a neutral indicator and nothing else.
	Loading
	// Redirect replaces the current location with Decision.Target.
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the guard result. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Decide maps (kind, status) to an outcome. Unresolved statuses always yield Loading,
// so neither the wrapped content nor a redirect is ever produced before resolution.
func Decide(kind Kind, status auth.Status) Decision {
	if !status.Resolved() {
		return Decision{Outcome: Loading}
	}

	switch kind {
	case Protected:
		if status == auth.StatusAuthenticated {
			return Decision{Outcome: Render}
		}
		return Decision{Outcome: Redirect, Target: LoginPath}
	case PublicOnly:
		if status == auth.StatusAuthenticated {
			return Decision{Outcome: Redirect, Target: LandingPath}
		}
		return Decision{Outcome: Render}
	default:
		return Decision{Outcome: Render}
	}
}
