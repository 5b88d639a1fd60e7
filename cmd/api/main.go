package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"labcrm_backend/internal/audit"
	"labcrm_backend/internal/contracts"
	"labcrm_backend/internal/customers"
	apphttp "labcrm_backend/internal/http"
	"labcrm_backend/internal/leads"
	"labcrm_backend/internal/notification"
	"labcrm_backend/internal/quotations"
	"labcrm_backend/internal/studies"
	"labcrm_backend/migrations"
	"labcrm_backend/platform/config"
	"labcrm_backend/platform/db"
	"labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
	"labcrm_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
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
	defer eventBus.Drain()

	val := validator.New()
	auditRepo := audit.New(pool)

	// Notification module subscribes to domain events (not HTTP-facing)
	if cfg.GetEmailEnabled() {
		sender := notification.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		)
		notification.NewNotifier(sender, cfg, log).Subscribe(eventBus)
		log.Info("email notifications enabled", "sales_team", cfg.GetSalesTeamAddress())
	}

	// Domain modules (composition root)
	leadsModule := leads.NewModule(pool, eventBus, auditRepo, val, log)
	customersModule := customers.NewModule(pool, eventBus, val)
	quotationsModule := quotations.NewModule(pool, eventBus, val)
	studiesModule := studies.NewModule(pool, eventBus, val, log)
	contractsModule := contracts.NewModule(pool, eventBus, leadsModule.Repository(), leadsModule.ConversionService(), val, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			customersModule,
			quotationsModule,
			contractsModule,
			studiesModule,
		},
	}

	engine := apphttp.NewRouter(app)

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
		return fmt.Errorf("%s: invalid retry attempts", name)
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
