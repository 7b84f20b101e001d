package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openfacepoker/ofc-server-go/internal/config"
	"github.com/openfacepoker/ofc-server-go/internal/game"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
	"github.com/openfacepoker/ofc-server-go/internal/repository"
	"github.com/openfacepoker/ofc-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting OFC server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize game engine
	engine := game.NewEngine(logger, quartz.NewReal())

	// Initialize websocket gateway
	wsServer := server.New(cfg, engine, logger)

	// Initialize database and persistence of completed games
	if cfg.Database.Enabled {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		gameRepo := repository.NewGameRepository(db)

		// The gateway registered itself as the notification handler;
		// chain the persistence hook behind the fan-out.
		engine.SetNotificationHandler(func(n game.GameNotification) {
			wsServer.ForwardNotification(n)
			if n.Type != string(rules.EventGameCompleted) {
				return
			}
			snap, err := engine.GameSnapshot(n.GameID)
			if err != nil {
				logger.Warn("snapshot of completed game failed",
					zap.String("game_id", n.GameID),
					zap.Error(err))
				return
			}
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer saveCancel()
			if err := gameRepo.SaveCompletedGame(saveCtx, snap); err != nil {
				logger.Error("persisting completed game failed",
					zap.String("game_id", n.GameID),
					zap.Error(err))
			}
		})
		logger.Info("completed games will be persisted")
	}

	// Start websocket server
	go func() {
		if serveErr := wsServer.Start(); serveErr != nil {
			logger.Error("websocket server error", zap.Error(serveErr))
		}
	}()

	logger.Info("OFC server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Int("max_games", cfg.Server.MaxGames),
		zap.String("default_variant", cfg.Game.DefaultVariant),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket shutdown error", zap.Error(err))
	}

	logger.Info("OFC server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
