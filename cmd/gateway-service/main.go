package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/talentbase/candidate-gateway/internal/api/handler"
	"github.com/talentbase/candidate-gateway/internal/api/router"
	"github.com/talentbase/candidate-gateway/internal/config"
	"github.com/talentbase/candidate-gateway/internal/reporter"
	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/internal/upstream"
	"github.com/talentbase/candidate-gateway/shared/logger"
	"github.com/talentbase/candidate-gateway/shared/postgresql"
	"github.com/talentbase/candidate-gateway/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("GATEWAY_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting candidate gateway",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Correlation store
	st, dbClient, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	appLogger.Info("Correlation store ready",
		slog.String("backend", cfg.Store.Backend),
		slog.Duration("ttl", cfg.Store.TTL),
	)

	sweeper := store.NewSweeper(st, cfg.Store.TTL, cfg.Store.CleanupInterval, appLogger.Logger)
	sweeper.Start(ctx)

	// Optional AMQP reporter channel
	var rabbitClient *rabbitmq.Client
	var amqpReporter *reporter.Consumer
	if cfg.Reporter.AMQPEnabled {
		rabbitClient, err = initRabbitMQ(&cfg.Reporter.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}

		consumerTag, _ := os.Hostname()
		if consumerTag == "" {
			consumerTag = "candidate-gateway"
		}
		amqpReporter = reporter.NewConsumer(st, rabbitClient, consumerTag, appLogger.Logger)
		if err := amqpReporter.Start(ctx); err != nil {
			return fmt.Errorf("failed to start AMQP reporter: %w", err)
		}
	}

	// Upstream client; missing base URL or token surfaces at call time
	upstreamClient := upstream.NewClient(&upstream.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		Token:       cfg.Upstream.Token,
		WebhookPath: cfg.Upstream.WebhookPath,
		Timeout:     cfg.Upstream.Timeout,
	}, appLogger.Logger)

	r := initRouter(cfg.App.Environment, appLogger.Logger, st, upstreamClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Candidate gateway is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	cleanup := func() {
		cancelBackground()
		sweeper.Stop()
		if amqpReporter != nil {
			amqpReporter.Stop()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initStore builds the configured correlation store backend. The returned
// postgresql client is non-nil only for the postgres backend; the caller
// owns closing it.
func initStore(cfg *config.Config, logger *slog.Logger) (store.Store, *postgresql.Client, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		dbClient, err := postgresql.NewClient(&postgresql.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(dbClient, cfg.Store.ProtectTerminal), dbClient, nil

	default:
		return store.NewMemoryStore(cfg.Store.ProtectTerminal), nil, nil
	}
}

// initRabbitMQ initializes the RabbitMQ client for the AMQP reporter
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		User:          cfg.User,
		Password:      cfg.Password,
		VHost:         cfg.VHost,
		Exchange:      cfg.Exchange,
		Queue:         cfg.Queue,
		RoutingKey:    cfg.RoutingKey,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
		Heartbeat:     cfg.Heartbeat,
		PrefetchCount: cfg.PrefetchCount,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, st store.Store, upstreamClient *upstream.Client) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:   logger,
		Store:    st,
		Upstream: upstreamClient,
	})
}
