package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/linktrade/internal/trade/auth"
	"github.com/gartstein/linktrade/internal/trade/config"
	"github.com/gartstein/linktrade/internal/trade/controller"
	"github.com/gartstein/linktrade/internal/trade/db"
	"github.com/gartstein/linktrade/internal/trade/events"
	"github.com/gartstein/linktrade/internal/trade/handlers"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := db.NewRepository(initDatabase(cfg))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	m := metrics.New(cfg.MetricsNamespace)

	if err := events.EnsureTopic(cfg.KafkaBrokers, cfg.Topic, logger); err != nil {
		logger.Warn("Kafka topic not ensured, events may be lost", zap.Error(err))
	}
	producer := events.NewProducer(cfg.KafkaBrokers, cfg.Topic, m, logger)
	defer producer.Close()

	engine := controller.NewEngine(repo, producer, m, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(handlers.NewWorkflowHandler(engine, logger))
	if err := server.RegisterHTTPHandler(handlers.NewTradeHandler(engine, m, logger), cfg.JWTSecret); err != nil {
		logger.Fatal("Failed to register HTTP routes", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger builds a Zap production logger at the configured level.
func initLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// initDatabase maps the flat config onto the repository settings.
func initDatabase(cfg *config.Config) *db.Config {
	return &db.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
