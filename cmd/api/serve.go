package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sigmarp/medical-api/internal/config"
	adminHandler "github.com/sigmarp/medical-api/internal/handler/admin"
	doctorHandler "github.com/sigmarp/medical-api/internal/handler/doctor"
	"github.com/sigmarp/medical-api/internal/handler/health"
	patientHandler "github.com/sigmarp/medical-api/internal/handler/patient"
	recruitmentHandler "github.com/sigmarp/medical-api/internal/handler/recruitment"
	visitHandler "github.com/sigmarp/medical-api/internal/handler/visit"
	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/notify"
	"github.com/sigmarp/medical-api/internal/repository/document"
	"github.com/sigmarp/medical-api/internal/router"
	doctorService "github.com/sigmarp/medical-api/internal/service/doctor"
	patientService "github.com/sigmarp/medical-api/internal/service/patient"
	recruitmentService "github.com/sigmarp/medical-api/internal/service/recruitment"
	userService "github.com/sigmarp/medical-api/internal/service/user"
	visitService "github.com/sigmarp/medical-api/internal/service/visit"
	"github.com/sigmarp/medical-api/pkg/auth"
	"github.com/sigmarp/medical-api/pkg/circuitbreaker"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/messaging"
	"github.com/sigmarp/medical-api/pkg/messaging/redis"
	"github.com/sigmarp/medical-api/pkg/worker"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	log := newLogger(cfg.Logging)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize document store
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error(err, "failed to close store")
		}
	}()

	checks := map[string]health.Pinger{"store": store}

	// Domain events go through the dispatcher so a slow broker never
	// holds a request.
	var events messaging.Publisher = messaging.NopPublisher{}
	var dispatcher *worker.Dispatcher
	if cfg.Redis.URL != "" {
		broker, err := redis.NewPublisher(ctx, redis.Config{URL: cfg.Redis.URL, Channel: cfg.Redis.Channel})
		if err != nil {
			return err
		}
		defer broker.Close()
		checks["redis"] = broker

		dispatcher = worker.NewDispatcher(broker, worker.DefaultDispatcherConfig(), log)
		go dispatcher.Start(ctx)
		events = dispatcher
	} else {
		log.Warn("redis.url not set, domain events are discarded")
	}

	// Initialize repositories
	visitRepo := document.NewVisitRepository(store, log)
	recruitmentRepo := document.NewRecruitmentRepository(store, log)
	doctorRepo := document.NewDoctorRepository(store)
	historyRepo := document.NewPatientHistoryRepository(store)
	userRepo := document.NewUserRepository(store)

	// Initialize services
	doctorSvc := doctorService.NewService(doctorRepo, cfg.Cache.DoctorTTL, log)
	visitSvc := visitService.NewService(visitRepo, doctorSvc, historyRepo, events, log)
	recruitmentSvc := recruitmentService.NewService(recruitmentRepo, buildNotifier(cfg, log), events, log)
	patientSvc := patientService.NewService(historyRepo, log)
	userSvc := userService.NewService(userRepo, cfg.Cache.AccountTTL, log)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc).WithAccounts(userSvc)

	r := router.NewRouter(log, router.RouterConfig{
		Mode:        cfg.Server.Mode,
		RateLimit:   rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:   cfg.RateLimit.Burst,
		CORSConfig:  middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...),
		MaxBodySize: cfg.Server.MaxBodyBytes,
	},
		health.NewHandler(checks),
		visitHandler.NewHandler(visitSvc, authMiddleware),
		recruitmentHandler.NewHandler(recruitmentSvc, authMiddleware),
		doctorHandler.NewHandler(doctorSvc, authMiddleware),
		patientHandler.NewHandler(patientSvc, authMiddleware),
		adminHandler.NewHandler(userSvc, authMiddleware),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	if dispatcher != nil {
		stop()
		<-dispatcher.Done()
	}
	log.Info("server exited")
	return nil
}

// buildNotifier assembles the recruitment channels. Discord is always wired
// and skips itself when no webhook is configured; email is optional.
func buildNotifier(cfg *config.Config, log *logger.Logger) notify.Notifier {
	channels := notify.Multi{
		notify.WithBreaker(
			notify.NewDiscord(notify.DiscordConfig{
				WebhookURL: cfg.Webhook.DiscordURL,
				PanelURL:   cfg.Webhook.PanelURL,
				Timeout:    cfg.Webhook.Timeout,
			}, log),
			circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "discord", MaxFailures: 5, Timeout: time.Minute}),
		),
	}
	if cfg.SMTP.Host != "" && len(cfg.SMTP.To) > 0 {
		channels = append(channels, notify.WithBreaker(
			notify.NewEmail(notify.EmailConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
				To:       cfg.SMTP.To,
			}),
			circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "email", MaxFailures: 3, Timeout: 5 * time.Minute}),
		))
	}
	return channels
}
