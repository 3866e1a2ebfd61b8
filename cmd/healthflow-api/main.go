package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/config"
	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
	v1 "github.com/healthflow/healthflow-api/internal/handler/v1"
	"github.com/healthflow/healthflow-api/internal/realtime"
	"github.com/healthflow/healthflow-api/internal/service"
	"github.com/healthflow/healthflow-api/pkg/auth"
	"github.com/healthflow/healthflow-api/pkg/database"
	"github.com/healthflow/healthflow-api/pkg/logger"
	"github.com/healthflow/healthflow-api/pkg/metrics"
	"github.com/healthflow/healthflow-api/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("failed to load configuration", zap.Error(err))
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting healthflow-api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Error("failed to initialise tracing", zap.Error(err))
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		return err
	}

	m := metrics.NewCollector("healthflow")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	auditRepo := domain.NewAuditPGRepository(db)
	windowRepo := availability.NewPGRepository(db)
	appointmentRepo := appointment.NewPGRepository(db)

	hub := realtime.NewHub(log.Named("hub"), m)

	auditSvc := service.NewAuditService(auditRepo, log.Named("audit"))
	scheduleSvc := service.NewScheduleService(windowRepo, appointmentRepo, log.Named("schedule"))
	appointmentSvc := service.NewAppointmentService(appointmentRepo, windowRepo, hub, auditSvc, log.Named("appointment"))
	chatSvc := service.NewChatService(hub, log.Named("chat"))

	wsHandler := realtime.NewWSHandler(hub, chatSvc, v1.ClaimsFrom, log.Named("ws"))

	router := v1.NewRouter(
		cfg,
		jwtManager,
		v1.NewAppointmentHandler(appointmentSvc, m),
		v1.NewScheduleHandler(scheduleSvc, m),
		v1.NewChatHandler(chatSvc),
		wsHandler,
		m,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("http server failed", zap.Error(err))
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}

	// Flush buffered audit entries after the listener stops accepting work.
	auditSvc.Shutdown()

	log.Info("server stopped")
	return nil
}
