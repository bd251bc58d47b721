package httpx

import (
	"net/http"
	"regexp"
	"strings"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
	"github.com/target/kb-assistant-web/internal/domain/guard"
	"github.com/target/kb-assistant-web/internal/http/validation"
	"github.com/target/kb-assistant-web/internal/ports"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type loginFormData struct {
	Username string
}

type registerFormData struct {
	Username string
	Email    string
	Phone    string
	FullName string
}

// LoginPage renders the sign-in form.
func (h *UIHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginFormData{}, nil, "")
}

// LoginSubmit signs the client in and sends it to the landing page. Failures
// re-render the form with the message inline.
func (h *UIHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, loginFormData{}, nil, "Unable to read the submitted form.")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := loginFormData{Username: username}

	fv := validation.New().
		Validate("username", username, validation.Required("Username", 150)).
		Validate("password", password, validation.Present("Password"))
	if !fv.Valid() {
		h.renderLogin(w, r, form, fv.Errors(), errMsgFixBelow)
		return
	}

	// Sign in under a new client id; the one the browser arrived with is retired.
	ctx := backendCtx(r)
	next := h.Clients.newPendingClient()
	res := next.session.Auth.Login(ctx, username, password)
	if res.Success {
		h.Clients.adopt(ctx, w, r, next)
		redirect(w, r, guard.LandingPath)
		return
	}
	h.Clients.abandon(next)
	h.renderLogin(w, r, form, nil, res.Error)
}

func (h *UIHandlers) renderLogin(w http.ResponseWriter, r *http.Request, form loginFormData, errs map[string]string, msg string) {
	data := basePageData(r, metaFor(PageLogin, "Sign in"))
	data["Form"] = form
	data["Errors"] = nonNilErrors(errs)
	data["Error"] = msg
	h.renderPage(w, r, data)
}

// RegisterPage renders the registration form.
func (h *UIHandlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, registerFormData{}, nil, "")
}

// RegisterSubmit creates an account. Invalid input never reaches the backend;
// success shows a confirmation that moves on to /login after a short delay.
func (h *UIHandlers) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderRegister(w, r, registerFormData{}, nil, "Unable to read the submitted form.")
		return
	}
	in := domainauth.RegistrationForm{
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		Email:           r.PostFormValue("email"),
		Phone:           r.PostFormValue("phone"),
		FullName:        r.PostFormValue("full_name"),
	}
	form := registerFormData{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		FullName: strings.TrimSpace(in.FullName),
	}

	fv := validation.New().
		Validate("username", in.Username, validation.Required("Username", 150)).
		Validate("password", in.Password,
			validation.Present("Password"),
			validation.MinLength("Password", domainauth.MinPasswordLength)).
		Validate("confirm_password", in.ConfirmPassword, validation.Equals("Passwords do not match.", in.Password)).
		Validate("email", in.Email, validation.Pattern("Email address", emailPattern))
	if !fv.Valid() {
		h.renderRegister(w, r, form, fv.Errors(), errMsgFixBelow)
		return
	}

	res := c.Auth.Register(backendCtx(r), in)
	if !res.Success {
		c.Inbox.Drain()
		h.renderRegister(w, r, form, nil, res.Error)
		return
	}

	c.Inbox.Drain()
	data := basePageData(r, metaFor(PageRegisterSuccess, "Account created"))
	data["Username"] = form.Username
	data["RedirectDelay"] = registerRedirectDelay
	w.Header().Set("Refresh", registerRedirectDelay+"; url="+guard.LoginPath)
	h.renderPage(w, r, data)
}

func (h *UIHandlers) renderRegister(w http.ResponseWriter, r *http.Request, form registerFormData, errs map[string]string, msg string) {
	data := basePageData(r, metaFor(PageRegister, "Create account"))
	data["Form"] = form
	data["Errors"] = nonNilErrors(errs)
	data["Error"] = msg
	data["MinPasswordLength"] = domainauth.MinPasswordLength
	h.renderPage(w, r, data)
}

// Logout ends the client's session, whatever its state, and returns to /login.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	c.Auth.Logout(backendCtx(r))
	// The sign-out notice is shown on the login page.
	if IsBrowserRequest(r) {
		redirect(w, r, guard.LoginPath)
		return
	}
	c.Inbox.Drain()
	w.WriteHeader(http.StatusNoContent)
}

func nonNilErrors(errs map[string]string) map[string]string {
	if errs == nil {
		return map[string]string{}
	}
	return errs
}

// notify queues a flash notice for the client's next page.
func notify(r *http.Request, kind ports.NoticeKind, msg string) {
	if c := ClientFromContext(r.Context()); c != nil && c.Inbox != nil {
		c.Inbox.Notify(r.Context(), ports.Notice{Kind: kind, Message: msg})
	}
}
