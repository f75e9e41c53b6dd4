package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/freightdesk/freightdesk/internal/app"
	"github.com/freightdesk/freightdesk/internal/auth"
	"github.com/freightdesk/freightdesk/internal/documents"
	"github.com/freightdesk/freightdesk/internal/notify"
	"github.com/freightdesk/freightdesk/internal/observability"
	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/paylink"
	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/platform/cache"
	"github.com/freightdesk/freightdesk/internal/platform/db"
	"github.com/freightdesk/freightdesk/internal/provider"
	"github.com/freightdesk/freightdesk/internal/quotes"
	"github.com/freightdesk/freightdesk/internal/rates"
	"github.com/freightdesk/freightdesk/internal/sequence"
	"github.com/freightdesk/freightdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	var producer *notify.Producer
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		producer = notify.NewProducer(brokers, cfg.KafkaTopic, 256)
		producer.Start(ctx)
	}
	dispatcher := notify.NewDispatcher(producer, jobClient, logger)

	resolver := auth.NewResolver(redisClient, cfg.AuthTokenTTL)
	authHandler := auth.NewHandler(logger, resolver, cfg.AuthBootstrapKey)

	allocator := sequence.NewPG(pool)

	rateEngine := rates.NewEngine(rates.DefaultCard())
	ratesHandler := rates.NewHandler(logger, rateEngine)

	quoteRepo := quotes.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)
	linkRepo := paylink.NewRepository(pool)

	orderService := orders.NewService(orderRepo, allocator, dispatcher, logger)
	paymentService := payments.NewService(paymentRepo, orderRepo, allocator, nil, dispatcher, logger)

	providerClient := provider.NewSandbox(cfg.AppBaseURL)
	linkService := paylink.NewService(linkRepo, nil, paymentService, providerClient, paylink.Mode(cfg.ProviderMode), logger)
	paymentService.SetLinks(linkService)

	quoteService := quotes.NewService(quoteRepo, allocator, linkService, orderService, dispatcher, logger)
	linkService.SetQuotes(quoteService)

	metrics := observability.NewMetrics()

	renderer := documents.NewGotenberg(cfg.GotenbergURL)
	documentService := documents.NewService(orderRepo, paymentRepo, allocator, renderer, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Resolver:         resolver,
		AuthHandler:      authHandler,
		RatesHandler:     ratesHandler,
		QuotesHandler:    quotes.NewHandler(logger, quoteService),
		OrdersHandler:    orders.NewHandler(logger, orderService),
		PaymentsHandler:  payments.NewHandler(logger, paymentService),
		WebhookHandler:   payments.NewWebhookHandler(logger, paymentService, metrics, cfg.ProviderSecret),
		PayHandler:       paylink.NewHandler(logger, linkService),
		DocumentsHandler: documents.NewHandler(logger, documentService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		if producer != nil {
			producer.WaitClosed()
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
