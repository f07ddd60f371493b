// Command server runs the elimu HTTP API.
//
// Configuration is read from the environment (and an optional .env file);
// see internal/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/database"
	"github.com/eneogroup/elimu-app-backend/internal/enrollment"
	"github.com/eneogroup/elimu-app-backend/internal/handler"
	"github.com/eneogroup/elimu-app-backend/internal/kvstore"
	"github.com/eneogroup/elimu-app-backend/internal/middleware"
	"github.com/eneogroup/elimu-app-backend/internal/queue"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
	"github.com/eneogroup/elimu-app-backend/internal/router"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	kv, rdb, err := openKV(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.Discard{}
	if cfg.AMQP.URL != "" {
		pub := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		go pub.Run(ctx)
		events = pub
		if cfg.AMQP.AuditLog != "" {
			consumer := &queue.AuditConsumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, LogPath: cfg.AMQP.AuditLog, Log: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", "error", err)
				}
			}()
		}
		logger.Info("security events enabled", "queue", cfg.AMQP.Queue)
	}

	schools := repository.NewSchoolRepo(db)
	principals := repository.NewPrincipalRepo(db)
	tokensRepo := repository.NewTokenRepo(db)
	years := repository.NewSchoolYearRepo(db)
	classrooms := repository.NewClassroomRepo(db)
	enrollments := repository.NewEnrollmentRepo(db)
	evaluations := repository.NewEvaluationRepo(db)

	ledger := auth.NewAttemptLedger(kv, cfg.BruteForce.Prefix)
	guard := auth.NewBruteForceGuard(ledger, cfg.BruteForce, events, logger)
	tokens := auth.NewTokenManager(cfg.Token, tokensRepo, kv)
	authSvc := auth.NewService(schools, principals, guard, tokens, events, logger)
	gate := auth.NewGate(logger)
	writes := enrollment.NewService(classrooms, years, enrollments, evaluations, gate)

	var throttle echo.MiddlewareFunc
	if rdb != nil {
		throttle = middleware.Throttle(cfg.Throttle, rdb, logger)
	}

	e := router.New(logger, router.Handlers{
		Health:      &handler.HealthHandler{DB: db},
		Auth:        handler.NewAuthHandler(authSvc),
		SchoolYears: &handler.SchoolYearHandler{Years: years, Gate: gate},
		Classrooms:  &handler.ClassroomHandler{Classrooms: classrooms, Gate: gate},
		Enrollments: &handler.EnrollmentHandler{Enrollments: enrollments, Writer: writes, Gate: gate},
		Evaluations: &handler.EvaluationHandler{Evaluations: evaluations, Writer: writes, Gate: gate},
		Verifier:    tokens,
		Throttle:    throttle,
		IPExtractor: router.ClientIP(cfg.TrustedProxies),
	})

	servers := []*http.Server{newServer(cfg.Port, e)}
	if cfg.MetricsEnabled() {
		servers = append(servers, newServer(cfg.MetricsPort, router.NewMetrics()))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case runErr = <-errCh:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}

func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// openKV connects the shared key-value store. Without Redis the attempt
// ledger and blacklist would be per process, so that fallback is only
// allowed in dev.
func openKV(ctx context.Context, cfg config.Config, logger *slog.Logger) (kvstore.Store, *redis.Client, error) {
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err == nil {
		return kvstore.NewRedis(rdb), rdb, nil
	}
	if !cfg.IsDev() {
		return nil, nil, err
	}
	logger.Warn("redis unavailable, using in-process store", "error", err)
	return kvstore.NewMemory(), nil, nil
}
