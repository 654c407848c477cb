package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"opsengine/internal/api"
	"opsengine/internal/config"
	"opsengine/internal/events"
	"opsengine/internal/processor"
	"opsengine/internal/repository/memory"
	"opsengine/internal/service"
	"opsengine/pkg/crypto"
	"opsengine/pkg/metrics"
	"opsengine/pkg/validator"
	"os"
	"os/signal"
	"syscall"
)

type publisher interface {
	processor.DecisionPublisher
	Close() error
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	backtest := flag.Bool("backtest", false, "replay the scenario catalogue, print the report and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	logger.Info("Starting application",
		slog.String("name", cfg.App.Name),
		slog.String("environment", cfg.App.Environment),
		slog.Int64("auto_approve_limit", cfg.Risk.AutoApproveLimit),
		slog.Int64("min_cash_balance", cfg.Risk.MinCashBalance))

	scenarioRepo, err := setupScenarios(cfg.Scenarios, logger)
	if err != nil {
		logger.Error("Failed to load scenario catalogue", slog.String("error", err.Error()))
		os.Exit(1)
	}

	profileValidator := validator.NewProfileValidator()
	engine := processor.NewRiskEngine(processor.NewLiteralAmountExtractor(), processor.ReplyTemplates{
		ApprovalSignature: cfg.Replies.ApprovalSignature,
		SecuritySignature: cfg.Replies.SecuritySignature,
	})

	if *backtest {
		proc := processor.NewTicketProcessor(processor.NewKeywordClassifier(), engine, nil, nil, nil, logger)
		runBacktest(proc, profileValidator, scenarioRepo, cfg, logger)
		return
	}

	metricsCollector := metrics.NewMetricsCollector(logger)
	decisionPublisher := setupPublisher(cfg, logger)
	dispatchService := setupDispatchService(cfg.Dispatch, metricsCollector, logger)

	var dispatcher processor.ActionDispatcher
	if dispatchService != nil {
		dispatcher = dispatchService
	}

	ticketProcessor := processor.NewTicketProcessor(
		processor.NewKeywordClassifier(),
		engine,
		metricsCollector,
		decisionPublisher,
		dispatcher,
		logger,
	)
	backtester := processor.NewBacktester(ticketProcessor, profileValidator, logger)

	apiHandler := api.NewAPIHandler(ticketProcessor, backtester, scenarioRepo, profileValidator, cfg.Risk, logger).
		WithRequestTimeout(cfg.Server.RequestTimeout)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsServer = metricsCollector.StartMetricsServer(cfg.Server.MetricsAddr)
	}
	httpServer := startHTTPServer(apiHandler, cfg, logger)

	waitForShutdown(logger, cfg, httpServer, metricsCollector, metricsServer, dispatchService, decisionPublisher)
	logger.Info("Application shutdown complete")
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func setupScenarios(cfg config.ScenariosConfig, logger *slog.Logger) (*memory.ScenarioRepository, error) {
	repo, err := memory.NewDefaultScenarioRepository()
	if err != nil {
		return nil, err
	}

	if cfg.File != "" {
		if err := repo.LoadFile(context.Background(), cfg.File); err != nil {
			return nil, err
		}
		logger.Info("Loaded extra scenarios", slog.String("file", cfg.File))
	}

	return repo, nil
}

func setupPublisher(cfg *config.Config, logger *slog.Logger) publisher {
	if !cfg.Kafka.Enabled {
		logger.Info("Decision events disabled")
		return events.NopPublisher{}
	}

	var signer *crypto.Signer
	if cfg.Signing.Secret != "" {
		signer = crypto.NewSigner(cfg.Signing.Secret, logger)
	} else {
		logger.Warn("Signing secret not set, decision events will be unsigned")
	}

	logger.Info("Publishing decision events",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("topic", cfg.Kafka.Topic))
	return events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, signer, logger)
}

func setupDispatchService(cfg config.DispatchConfig, recorder service.ActionRecorder, logger *slog.Logger) *service.DispatchService {
	if !cfg.Enabled {
		logger.Info("Automated actions disabled")
		return nil
	}

	emailService := &service.MockEmailService{}
	slackService := &service.MockSlackService{}

	return service.NewDispatchService(
		emailService,
		slackService,
		recorder,
		cfg.Workers,
		cfg.QueueSize,
		logger,
	)
}

func runBacktest(
	proc *processor.TicketProcessor,
	parser processor.ProfileParser,
	repo *memory.ScenarioRepository,
	cfg *config.Config,
	logger *slog.Logger,
) {
	ctx := context.Background()

	scenarios, err := repo.GetAll(ctx)
	if err != nil {
		logger.Error("Failed to list scenarios", slog.String("error", err.Error()))
		os.Exit(1)
	}

	report := processor.NewBacktester(proc, parser, logger).Run(ctx, scenarios, cfg.Risk)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("Failed to write backtest report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if report.Matched != report.Total {
		os.Exit(2)
	}
}

func startHTTPServer(apiHandler *api.APIHandler, cfg *config.Config, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiHandler.Router(cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	cfg *config.Config,
	httpServer *http.Server,
	metricsCollector *metrics.MetricsCollector,
	metricsServer *http.Server,
	dispatchService *service.DispatchService,
	decisionPublisher publisher,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsCollector.Shutdown(ctx, metricsServer); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if dispatchService != nil {
		if err := dispatchService.Shutdown(ctx); err != nil {
			logger.Error("Dispatch service shutdown failed", slog.String("error", err.Error()))
		}
	}

	if err := decisionPublisher.Close(); err != nil {
		logger.Error("Decision publisher close failed", slog.String("error", err.Error()))
	}
}
