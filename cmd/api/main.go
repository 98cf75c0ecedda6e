package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"textback_backend/internal/billing"
	"textback_backend/internal/calls"
	"textback_backend/internal/compliance"
	"textback_backend/internal/email"
	"textback_backend/internal/events"
	"textback_backend/internal/followup"
	apphttp "textback_backend/internal/http"
	"textback_backend/internal/http/router"
	"textback_backend/internal/intent"
	"textback_backend/internal/ledger"
	"textback_backend/internal/messaging"
	"textback_backend/internal/notification"
	"textback_backend/internal/sms"
	"textback_backend/platform/config"
	"textback_backend/platform/db"
	"textback_backend/platform/logger"
	"textback_backend/platform/phone"
	"textback_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	phone.DefaultRegion = cfg.GetDefaultPhoneRegion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	val := validator.New()

	smsClient := sms.NewClient(cfg, log)
	if smsClient == nil {
		log.Warn("SMS_BASE_URL not configured; outbound texts will fail")
	}

	var classifier intent.Classifier
	if gemini, err := intent.NewGeminiClassifier(ctx, cfg, log); err != nil {
		log.Error("failed to initialize intent classifier", "error", err)
		panic("failed to initialize intent classifier: " + err.Error())
	} else if gemini != nil {
		classifier = gemini
		log.Info("intent classifier enabled", "model", cfg.GeminiModel)
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, log)

	complianceGate := compliance.NewGate(compliance.NewRepository(pool), log)

	billingModule := billing.NewModule(pool, ledgerRepo, ledgerSvc, cfg, log)

	callsModule := calls.NewModule(pool, calls.Deps{
		Ledger:     ledgerSvc,
		Compliance: complianceGate,
		Billing:    billingModule.Gate(),
		Sender:     smsClient,
		Classifier: classifier,
		Bus:        eventBus,
		Val:        val,
	}, cfg, log)

	messagingModule := messaging.NewModule(pool, messaging.Deps{
		Ledger:     ledgerSvc,
		Compliance: complianceGate,
		Billing:    billingModule.Gate(),
		Sender:     smsClient,
		Classifier: classifier,
		Bus:        eventBus,
		Val:        val,
	}, log)

	followupModule := followup.NewModule(pool, followup.Deps{
		Compliance: complianceGate,
		Billing:    billingModule.Gate(),
		Sender:     smsClient,
	}, cfg, log)

	// Owner alerts subscribe to domain events (not HTTP-facing)
	notifier := notification.NewNotifier(smsClient, email.NewSender(cfg), log)
	notifier.Register(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			billingModule,
			callsModule,
			messagingModule,
			followupModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
