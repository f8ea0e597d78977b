package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/config"
	"github.com/anquanyun/safety-approval/internal/dispatch"
	httpserver "github.com/anquanyun/safety-approval/internal/interfaces/http"
	"github.com/anquanyun/safety-approval/internal/lark"
	"github.com/anquanyun/safety-approval/internal/notification"
	"github.com/anquanyun/safety-approval/internal/report"
	"github.com/anquanyun/safety-approval/internal/repository"
	"github.com/anquanyun/safety-approval/internal/services"
	"github.com/anquanyun/safety-approval/internal/template"
	"github.com/anquanyun/safety-approval/pkg/database"
	"github.com/anquanyun/safety-approval/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Safety Approval Service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	recordRepo := repository.NewRecordRepository(db.DB, logger)
	logRepo := repository.NewLogRepository(db.DB, logger)
	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	directoryRepo := repository.NewDirectoryRepository(db.DB, logger)

	// Initialize the notification channel. The Lark client is only built
	// when the channel is enabled; the notifier logs instead of sending
	// otherwise.
	var sender notification.Sender
	if cfg.Lark.Enabled {
		larkClient := lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		sender = lark.NewMessageAPI(larkClient, logger)
	}
	notifier := notification.NewNotifier(sender, cfg.Lark.Enabled, logger)

	// Initialize the dispatch engine and its collaborators
	engine := dispatch.NewEngine(logger)
	parser := template.NewParser(logger)
	exporter := report.NewLedgerExporter(logger)

	service := services.NewDispatchService(
		db,
		engine,
		recordRepo,
		logRepo,
		workflowRepo,
		directoryRepo,
		parser,
		exporter,
		notifier,
		logger,
	)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, service, logger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
