package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"checkout-payments/internal/config"
	pg "checkout-payments/internal/infra/db/postgres"
	"checkout-payments/internal/infra/identity"
	"checkout-payments/internal/infra/logging"
	"checkout-payments/internal/infra/mail"
	"checkout-payments/internal/infra/metrics"
	pay "checkout-payments/internal/infra/payment"
	red "checkout-payments/internal/infra/redis"
	"checkout-payments/internal/infra/sched"
	"checkout-payments/internal/infra/web"
	"checkout-payments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	pg.StartPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (optional: cache and lock degrade to nil) ----
	var cache usecase.VerifyCache
	var locker usecase.ProvisionLocker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; verify cache and provision lock disabled")
		} else {
			defer redisClient.Close()
			cache = red.NewVerifyCache(redisClient, cfg.Redis.CacheTTL, logger)
			locker = red.NewLocker(redisClient)
		}
	}

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	checkoutRepo := pg.NewCheckoutRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	accessRepo := pg.NewAccessRepo(pool)
	profileRepo := pg.NewProfileRepo(pool)
	integrationRepo := pg.NewIntegrationRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	gateway := pay.NewMercadoPagoGateway(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	identityClient := identity.NewAdminClient(cfg.Identity.BaseURL, cfg.Identity.ServiceKey, cfg.Identity.Timeout)
	mailer := mail.NewSMTPMailer(cfg.SMTP, logger)

	// ---- Use cases ----
	verifyUC := usecase.NewVerifyUseCase(usecase.VerifyDeps{
		Integrations:  integrationRepo,
		Payments:      paymentRepo,
		Checkouts:     checkoutRepo,
		Products:      productRepo,
		Orders:        orderRepo,
		Access:        accessRepo,
		Profiles:      profileRepo,
		Gateway:       gateway,
		Identity:      identityClient,
		Mailer:        mailer,
		TM:            txManager,
		Cache:         cache,
		Locker:        locker,
		FallbackToken: cfg.Gateway.AccessToken,
	}, logger)
	adminUC := usecase.NewAdminUseCase(paymentRepo, orderRepo, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(verifyUC, adminUC, auth, cfg.Admin.Password, cfg.Server.AllowedOrigins, logger)
	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: router}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Reconciler ----
	if cfg.Reconciler.Enabled {
		reconciler := sched.NewPaymentReconciler(verifyUC, paymentRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
		go reconciler.Start(ctx)
		logger.Info().
			Dur("interval", cfg.Reconciler.Interval).
			Dur("stale_after", cfg.Reconciler.StaleAfter).
			Msg("payment reconciler started")
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = server.Shutdown(context.Background())
}
