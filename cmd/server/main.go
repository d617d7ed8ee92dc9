package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/api"
	"github.com/ethpandaops/overlay-backend/internal/config"
	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	"github.com/ethpandaops/overlay-backend/internal/handlers"
	"github.com/ethpandaops/overlay-backend/internal/hotkeys"
	"github.com/ethpandaops/overlay-backend/internal/igdb"
	"github.com/ethpandaops/overlay-backend/internal/leader"
	"github.com/ethpandaops/overlay-backend/internal/obs"
	"github.com/ethpandaops/overlay-backend/internal/overlay"
	"github.com/ethpandaops/overlay-backend/internal/redis"
	"github.com/ethpandaops/overlay-backend/internal/server"
	"github.com/ethpandaops/overlay-backend/internal/session"
	"github.com/ethpandaops/overlay-backend/internal/twitch"
	"github.com/ethpandaops/overlay-backend/internal/version"
)

// infrastructure holds core infrastructure components.
type infrastructure struct {
	redisClient redis.Client
	elector     leader.Elector
	obsClient   *obs.Client // nil when OBS is disabled
}

// services holds application services.
type services struct {
	gameInfoProvider gameinfo.Provider // nil when game info is disabled
	watcher          *overlay.Watcher
	panel            *overlay.Panel
	session          *session.Session
	hotkeys          *hotkeys.Store
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup logger
	logger := setupLogger()

	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load and validate configuration
	cfg, err := loadAndValidateConfig(ctx, logger, *configPath)
	if err != nil {
		logger.WithError(err).Fatal("Configuration error")
	}

	// Setup infrastructure (redis, leader election, obs)
	infra, err := setupInfrastructure(ctx, logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Infrastructure setup failed")
	}

	// Setup services (game info, overlay panel, session, hotkeys)
	svc, err := setupServices(ctx, logger, cfg, infra)
	if err != nil {
		logger.WithError(err).Fatal("Service setup failed")
	}

	// Start HTTP server
	srv := startServer(cfg, logger, infra, svc)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Cancel application context to signal all services to stop
	cancel()

	// Perform graceful shutdown
	shutdownGracefully(logger, cfg, srv, svc, infra)
}

// setupLogger creates and configures the application logger.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	logger.WithFields(logrus.Fields{
		"version":    version.Short(),
		"git_commit": version.GitCommit,
		"build_date": version.BuildDate,
	}).Info("Starting...")

	return logger
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(
	_ context.Context,
	logger *logrus.Logger,
	configPath string,
) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Validate configuration (sets defaults, including the log level)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	level, parseErr := logrus.ParseLevel(cfg.Server.LogLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, using info")

		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	logger.WithFields(logrus.Fields{
		"port":      cfg.Server.Port,
		"log_level": cfg.Server.LogLevel,
		"obs":       cfg.OBS.Enabled,
		"gameinfo":  cfg.GameInfo.Enabled,
	}).Info("Configuration loaded")

	return cfg, nil
}

// setupInfrastructure initializes Redis, leader election and the OBS
// connection.
func setupInfrastructure(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
) (*infrastructure, error) {
	redisClient := redis.NewClient(logger, cfg.Redis)

	if err := redisClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start Redis client: %w", err)
	}

	elector := leader.NewElector(logger, cfg.Leader, redisClient)

	if err := elector.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start leader election: %w", err)
	}

	infra := &infrastructure{
		redisClient: redisClient,
		elector:     elector,
	}

	if cfg.OBS.Enabled {
		infra.obsClient = obs.New(logger, cfg.OBS)
	}

	return infra, nil
}

// setupServices initializes game info, the overlay panel, the counter
// session and hotkey bindings.
func setupServices(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	infra *infrastructure,
) (*services, error) {
	svc := &services{}

	// Optional OBS collaborators stay nil interfaces when OBS is disabled.
	var (
		textSink session.TextSink
		browser  overlay.BrowserRefresher
	)

	if infra.obsClient != nil {
		textSink = infra.obsClient
		browser = infra.obsClient
	}

	if cfg.GameInfo.Enabled {
		if err := setupGameInfo(ctx, logger, cfg, infra, svc, browser); err != nil {
			return nil, err
		}
	}

	svc.session = session.New(ctx, logger, cfg.Counter, textSink, svc.gameInfoProvider)

	svc.hotkeys = hotkeys.NewStore(logger, infra.redisClient, svc.session)
	if err := svc.hotkeys.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load hotkey bindings: %w", err)
	}

	if infra.obsClient != nil {
		// Re-push the counter display whenever OBS (re)connects.
		infra.obsClient.OnConnect(svc.session.Sync)

		// OBS may start after us; Run keeps retrying.
		go infra.obsClient.Run(ctx)
	}

	return svc, nil
}

// setupGameInfo wires the Twitch and IGDB clients into the game info
// provider and starts the panel that renders it.
func setupGameInfo(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	infra *infrastructure,
	svc *services,
	browser overlay.BrowserRefresher,
) error {
	twitchClient, err := twitch.New(&cfg.Twitch, logger)
	if err != nil {
		return fmt.Errorf("failed to create twitch client: %w", err)
	}

	igdbClient, err := igdb.New(&cfg.IGDB, logger, twitchClient)
	if err != nil {
		return fmt.Errorf("failed to create igdb client: %w", err)
	}

	upstream, err := gameinfo.New(&cfg.GameInfo, logger, twitchClient, igdbClient)
	if err != nil {
		return fmt.Errorf("failed to create game info service: %w", err)
	}

	provider := gameinfo.NewRedisProvider(logger, cfg.GameInfo, infra.redisClient, infra.elector, upstream)

	if err := provider.Start(ctx); err != nil {
		return fmt.Errorf("failed to start game info provider: %w", err)
	}

	svc.gameInfoProvider = provider

	logger.Info("Game info service started")

	renderer, err := overlay.NewRenderer(cfg.Overlay.Template)
	if err != nil {
		return fmt.Errorf("failed to compile overlay template: %w", err)
	}

	svc.panel = overlay.NewPanel(logger, cfg.Overlay, renderer, provider, browser, cfg.GameInfo.RefreshInterval)

	if cfg.Overlay.TemplatePath != "" {
		svc.watcher, err = overlay.NewWatcher(logger, cfg.Overlay.TemplatePath, renderer, cfg.Overlay.ReloadDebounce,
			func() { svc.panel.Update(ctx) })
		if err != nil {
			return fmt.Errorf("failed to load overlay template: %w", err)
		}

		if err := svc.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch overlay template: %w", err)
		}
	}

	if err := svc.panel.Start(ctx); err != nil {
		return fmt.Errorf("failed to start overlay panel: %w", err)
	}

	return nil
}

// startServer creates and starts the HTTP server.
func startServer(
	cfg *config.Config,
	logger *logrus.Logger,
	infra *infrastructure,
	svc *services,
) *server.Server {
	deps := server.Dependencies{
		Session:  svc.session,
		Hotkeys:  svc.hotkeys,
		GameInfo: svc.gameInfoProvider,
		Checks: []handlers.Check{
			{Name: "redis", Critical: true, Probe: infra.redisClient.Ping},
		},
	}

	if infra.obsClient != nil {
		deps.Inputs = infra.obsClient
		deps.Checks = append(deps.Checks, handlers.Check{
			Name: "obs",
			Probe: func(context.Context) error {
				if !infra.obsClient.Connected() {
					return obs.ErrNotConnected
				}

				return nil
			},
		})
	}

	if svc.panel != nil {
		deps.Panel = svc.panel
	}

	srv := server.New(logger, cfg, deps)

	// Start server in goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	return srv
}

// Compile-time checks that the OBS client serves every optional role.
var (
	_ session.TextSink         = (*obs.Client)(nil)
	_ overlay.BrowserRefresher = (*obs.Client)(nil)
	_ api.InputLister          = (*obs.Client)(nil)
)

// shutdownGracefully performs graceful shutdown of all services.
// Shutdown order:
// 1. HTTP server (stop accepting requests).
// 2. Panel, template watcher and providers (stop background loops).
// 3. OBS connection.
// 4. Leader election (release leadership lock).
// 5. Redis client (close connections).
func shutdownGracefully(
	logger *logrus.Logger,
	cfg *config.Config,
	srv *server.Server,
	svc *services,
	infra *infrastructure,
) {
	logger.Info("Initiating graceful shutdown...")

	// Create a timeout context for the shutdown process
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}

	if svc.panel != nil {
		if err := svc.panel.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping overlay panel")
		}
	}

	if svc.watcher != nil {
		if err := svc.watcher.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping template watcher")
		}
	}

	if svc.gameInfoProvider != nil {
		if err := svc.gameInfoProvider.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping game info provider")
		}
	}

	if infra.obsClient != nil {
		if err := infra.obsClient.Close(); err != nil {
			logger.WithError(err).Error("Error closing OBS connection")
		}
	}

	// Stop leader election (releases lock)
	if err := infra.elector.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping leader election")
	}

	// Stop Redis client (closes connections)
	if err := infra.redisClient.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping Redis client")
	}

	logger.Info("Server stopped gracefully")
}
