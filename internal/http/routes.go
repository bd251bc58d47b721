package httpx

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	kbassist "github.com/target/kb-assistant-web"
	"github.com/target/kb-assistant-web/internal/domain/guard"
	"github.com/target/kb-assistant-web/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Registry     *service.ClientRegistry
	CookieName   string
	CookieDomain string
	// ResolveWait bounds how long guarded routes wait for session resolution.
	ResolveWait    time.Duration
	MaxUploadBytes int64
	// Compression enables gzip when non-nil.
	Compression *CompressionConfig
	// TemplateFS overrides the template source (tests).
	TemplateFS fs.FS
	// StaticFS overrides the static asset source (tests).
	StaticFS fs.FS
	IsDev    bool // templates and static files are read from disk
	Logger   *slog.Logger
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewRouter creates the application handler: browser pages, the session API,
// health and static assets.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Registry == nil {
		return nil, fmt.Errorf("router: client registry is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateSource(services),
		DevMode:    services.IsDev,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("router: templates: %w", err)
	}
	clients := ClientConfig{
		CookieName:   services.CookieName,
		CookieDomain: services.CookieDomain,
		Registry:     services.Registry,
	}
	h := &UIHandlers{T: tr, Clients: clients, MaxUploadBytes: services.MaxUploadBytes, IsDev: services.IsDev, Logger: logger}

	mux := http.NewServeMux()
	health := HealthHandler(services.Registry)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	mux.Handle("GET /static/", staticHandler(services))

	client := ClientIdentity(clients)
	csrf := CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})
	gcfg := GuardConfig{ResolveWait: services.ResolveWait, Renderer: tr, Logger: logger}
	protected := Guard(guard.Protected, gcfg)
	publicOnly := Guard(guard.PublicOnly, gcfg)

	open := func(fn http.HandlerFunc) http.Handler { return chain(fn, client, csrf) }
	public := func(fn http.HandlerFunc) http.Handler { return chain(fn, client, csrf, publicOnly) }
	private := func(fn http.HandlerFunc) http.Handler { return chain(fn, client, csrf, protected) }

	mux.Handle("GET /{$}", open(h.Home))
	mux.Handle("POST /logout", open(h.Logout))

	mux.Handle("GET /login", public(h.LoginPage))
	mux.Handle("POST /login", public(h.LoginSubmit))
	mux.Handle("GET /register", public(h.RegisterPage))
	mux.Handle("POST /register", public(h.RegisterSubmit))

	mux.Handle("GET /chat", private(h.ChatPage))
	mux.Handle("POST /chat/messages", private(h.ChatSend))
	mux.Handle("POST /chat/reset", private(h.ChatReset))

	mux.Handle("GET /admin", private(h.AdminDashboard))
	mux.Handle("GET /admin/roles", private(h.RolesPage))
	mux.Handle("POST /admin/roles", private(h.RoleSave))
	mux.Handle("GET /admin/users", private(h.UsersPage))
	mux.Handle("POST /admin/users/{username}/roles", private(h.UserRolesSave))
	mux.Handle("GET /admin/permissions", private(h.PermissionsPage))
	mux.Handle("POST /admin/permissions/{role}", private(h.RolePermissionsSave))
	mux.Handle("GET /admin/kb", private(h.KBPage))
	mux.Handle("POST /admin/kb/upload", private(h.KBUpload))
	mux.Handle("GET /admin/kb/{id}", private(h.KBDetail))
	mux.Handle("POST /admin/kb/{id}/delete", private(h.KBDelete))
	mux.Handle("POST /admin/kb/{id}/visibility", private(h.KBVisibility))
	mux.Handle("POST /admin/kb/{id}/reembed", private(h.KBReembed))

	mux.Handle("GET /api/session", private(SessionAPI))

	mux.Handle("/", open(h.NotFound))

	mws := []middleware{Recover(logger), Logging(logger)}
	if services.Compression != nil {
		cc := *services.Compression
		if cc.Logger == nil {
			cc.Logger = logger
		}
		mws = append(mws, Compression(cc))
	}
	mws = append(mws, BrowserDetection())
	return chain(mux, mws...), nil
}

func templateSource(s RouterServices) fs.FS {
	if s.TemplateFS != nil {
		return s.TemplateFS
	}
	if s.IsDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	sub, err := fs.Sub(kbassist.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		return os.DirFS(TemplatePathFromRoot)
	}
	return sub
}

// staticHandler serves /static/* from disk in dev mode and from the embedded FS otherwise.
func staticHandler(s RouterServices) http.Handler {
	var fsys http.FileSystem
	switch {
	case s.StaticFS != nil:
		fsys = http.FS(s.StaticFS)
	case s.IsDev:
		fsys = http.Dir("frontend/static")
	default:
		sub, err := fs.Sub(kbassist.StaticFS, "frontend/static")
		if err != nil {
			fsys = http.Dir("frontend/static")
		} else {
			fsys = http.FS(sub)
		}
	}
	files := http.StripPrefix("/static/", http.FileServer(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsDev {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
}
