package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finsmart/internal/amqp"
	"finsmart/internal/auth"
	"finsmart/internal/config"
	apphttp "finsmart/internal/http"
	applog "finsmart/internal/log"
	"finsmart/internal/scheduler"
	"finsmart/internal/services"
	"finsmart/internal/store"
	"finsmart/internal/store/memory"
	"finsmart/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		st = repo
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		st = memory.New()
		logger.Info("Initialized memory backend")
	}
	defer st.Close()

	// AMQP is optional: without it, transfer repair messages are skipped and
	// transfers rely on the next mutation's reconcile.
	var repairs services.RepairQueue
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transfer repair disabled", "error", err)
		} else {
			defer client.Close()
			repairs = client
		}
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	ledger := services.NewLedgerService(st, repairs)
	categories := services.NewCategoryService(st)
	reports := services.NewReportService(st)
	users := services.NewUserService(st, ledger, categories, tokens, services.LogOTPSender{}, cfg.OTPTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:      users,
		Ledger:     ledger,
		Categories: categories,
		Reports:    reports,
		Tokens:     tokens,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	monthly := scheduler.New(categories, cfg.ResetCheckInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := monthly.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
