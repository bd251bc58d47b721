package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/kb-assistant-web/config"
	"github.com/target/kb-assistant-web/internal/adapters/reaper"
)

// RunConfig contains what Run needs to serve until shutdown.
type RunConfig struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Signals overrides the shutdown signal source (tests).
	Signals <-chan os.Signal
}

// Run connects infrastructure, serves HTTP and blocks until a shutdown signal
// arrives or the server fails.
func Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Config == nil {
		return errors.New("run config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateConfig(cfg.Config); err != nil {
		return err
	}

	var redisClient redis.UniversalClient
	if cfg.Config.Redis.Enabled() {
		var err error
		redisClient, err = ConnectRedis(ctx, RedisOptions{Config: cfg.Config.Redis, Logger: logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := NewServices(&ServiceDeps{Config: cfg.Config, RedisClient: redisClient, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close services failed", "error", cerr)
		}
	}()

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()
	sweeperDone, err := startReaper(bgCtx, cfg.Config.Session.SweepInterval, services, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	server, err := StartHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: services, Logger: logger}, errCh)
	if err != nil {
		return err
	}

	err = waitForShutdown(ctx, shutdownConfig{
		signals: cfg.Signals,
		errCh:   errCh,
		server:  server,
		cfg:     cfg.Config,
		logger:  logger,
	})
	cancelBackground()
	waitForService(sweeperDone, "client reaper", cfg.Config.HTTP.ShutdownTimeout, logger)
	return err
}

// startReaper runs the idle-client sweep in the background. The returned
// channel closes when it stops; it is nil when sweeping is disabled.
func startReaper(ctx context.Context, interval time.Duration, services *ServiceContainer, logger *slog.Logger) (<-chan struct{}, error) {
	if interval <= 0 {
		return nil, nil
	}
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Sweeper:  services.Registry,
		Interval: interval,
		Logger:   logger,
		Metrics:  services.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create client reaper: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil {
			logger.ErrorContext(ctx, "client reaper failed", "error", err)
		}
	}()
	return done, nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, timeout time.Duration, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(timeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	signals <-chan os.Signal
	errCh   <-chan error
	server  *http.Server
	cfg     *config.AppConfig
	logger  *slog.Logger
}

// waitForShutdown waits for shutdown signal or server error.
func waitForShutdown(ctx context.Context, cfg shutdownConfig) error {
	quit := cfg.signals
	if quit == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		quit = ch
	}

	stop := func() error {
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(ctx),
			Server:  cfg.server,
			Timeout: cfg.cfg.HTTP.ShutdownTimeout,
			Logger:  cfg.logger,
		})
	}

	select {
	case <-quit:
		cfg.logger.Info("shutting down...")
		return stop()
	case <-ctx.Done():
		cfg.logger.Info("context cancelled, shutting down...")
		return stop()
	case err := <-cfg.errCh:
		cfg.logger.Error("server error", "error", err)
		if stopErr := stop(); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}
