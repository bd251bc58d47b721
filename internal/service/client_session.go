package service

import (
	"context"
	"log/slog"

	"github.com/target/kb-assistant-web/internal/adminapi"
	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/observability/notify"
	"github.com/target/kb-assistant-web/internal/observability/statsd"
	"github.com/target/kb-assistant-web/internal/ports"
)

// ClientSession bundles everything one browser client owns.
type ClientSession struct {
	ID        string
	Auth      *AuthService
	Chat      *ChatService
	Admin     *adminapi.Service
	Documents *DocumentService
	Dashboard *DashboardService
	Inbox     *Inbox
}

// ClientSessionDeps groups the shared dependencies used to build client sessions.
type ClientSessionDeps struct {
	// API is the shared, unauthenticated base client.
	API             *apiclient.Client
	Tokens          ports.TokenStoreFactory
	Inspector       ports.TokenInspector
	Metrics         statsd.Sink
	Paths           AuthPaths
	Mapping         ResponseMapping
	RemoteLogout    bool
	TranscriptLimit int
	Logger          *slog.Logger
}

// NewClientSessionBuilder returns a ClientRegistryConfig.Build function. Every
// admin call of the built session reads the client's token store and logs the
// client out when the backend rejects that token with 401.
func NewClientSessionBuilder(deps ClientSessionDeps) func(clientID string) *ClientSession {
	return func(clientID string) *ClientSession {
		logger := deps.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger = logger.With(slog.String("client", shortID(clientID)))

		store := deps.Tokens.ForClient(clientID)
		inbox := NewInbox(0)
		auth := NewAuthService(AuthServiceOptions{
			API:          deps.API,
			Tokens:       store,
			Inspector:    deps.Inspector,
			Notifier:     notify.Fanout{inbox, notify.Log{Logger: logger}},
			Metrics:      deps.Metrics,
			Paths:        deps.Paths,
			Mapping:      deps.Mapping,
			RemoteLogout: deps.RemoteLogout,
			Logger:       logger,
		})
		authed := deps.API.WithTokens(store).WithUnauthorizedHook(func(ctx context.Context) {
			auth.HandleUnauthorized(ctx)
		})
		admin := adminapi.New(authed)

		return &ClientSession{
			ID:        clientID,
			Auth:      auth,
			Chat:      NewChatService(ChatServiceOptions{Backend: admin, Limit: deps.TranscriptLimit, Logger: logger}),
			Admin:     admin,
			Documents: NewDocumentService(admin),
			Dashboard: NewDashboardService(admin),
			Inbox:     inbox,
		}
	}
}

// shortID keeps client ids out of logs in full.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
