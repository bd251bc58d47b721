package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/target/kb-assistant-web/config"
	"github.com/target/kb-assistant-web/internal/adapters/jwtclaims"
	"github.com/target/kb-assistant-web/internal/adapters/memory"
	redisstore "github.com/target/kb-assistant-web/internal/adapters/redis"
	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/observability/statsd"
	"github.com/target/kb-assistant-web/internal/ports"
	"github.com/target/kb-assistant-web/internal/service"
)

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Config *config.AppConfig
	// RedisClient backs the token store. Nil keeps tokens in process memory.
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the long-lived objects shared by every request.
type ServiceContainer struct {
	API      *apiclient.Client
	Tokens   ports.TokenStoreFactory
	Registry *service.ClientRegistry
	Metrics  *statsd.Client
}

// Close releases the registry and the metrics connection.
func (s *ServiceContainer) Close() error {
	if s == nil {
		return nil
	}
	if s.Registry != nil {
		s.Registry.Close()
	}
	if s.Metrics != nil {
		return s.Metrics.Close()
	}
	return nil
}

// NewServices wires the backend client, token persistence and the client registry.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled:    cfg.Observability.Metrics.IsEnabled(),
		Address:    cfg.Observability.Metrics.StatsdAddress,
		Prefix:     cfg.Observability.Metrics.Prefix,
		Logger:     logger,
		GlobalTags: map[string]string{"service": "kb-assistant-web"},
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}

	api := apiclient.New(apiclient.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Metrics:    metrics,
		Logger:     logger,
	})

	inspector := jwtclaims.Inspector{}
	tokens := newTokenStore(deps.RedisClient, cfg.Session, inspector, logger)

	registry := service.NewClientRegistry(service.ClientRegistryConfig{
		Capacity: cfg.Session.RegistryCapacity,
		IdleTTL:  cfg.Session.RegistryIdleTTL,
		Build: service.NewClientSessionBuilder(service.ClientSessionDeps{
			API:             api,
			Tokens:          tokens,
			Inspector:       inspector,
			Metrics:         metrics,
			Paths:           AuthPaths(cfg.Auth),
			Mapping:         ResponseMapping(cfg.Auth),
			RemoteLogout:    cfg.Auth.RemoteLogout,
			TranscriptLimit: cfg.Session.TranscriptLimit,
			Logger:          logger,
		}),
	})

	return &ServiceContainer{API: api, Tokens: tokens, Registry: registry, Metrics: metrics}, nil
}

//nolint:ireturn // callers only depend on the factory port.
func newTokenStore(
	client redis.UniversalClient,
	cfg config.SessionConfig,
	inspector ports.TokenInspector,
	logger *slog.Logger,
) ports.TokenStoreFactory {
	if client == nil {
		logger.Warn("redis disabled; tokens are kept in memory and lost on restart")
		return memory.NewTokenStore()
	}
	return redisstore.NewTokenStore(redisstore.TokenStoreOptions{
		Client:     client,
		Prefix:     cfg.KeyPrefix,
		DefaultTTL: cfg.TokenTTL,
		Inspector:  inspector,
	})
}
