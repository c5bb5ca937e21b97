package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"hrdesk/internal/domain/announcements"
	"hrdesk/internal/domain/applications"
	"hrdesk/internal/domain/attendance"
	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/dashboard"
	"hrdesk/internal/domain/expenses"
	"hrdesk/internal/domain/holidays"
	"hrdesk/internal/domain/notifications"
	"hrdesk/internal/domain/payroll"
	"hrdesk/internal/platform/cache"
	"hrdesk/internal/platform/config"
	"hrdesk/internal/platform/crypto"
	"hrdesk/internal/platform/db"
	"hrdesk/internal/platform/email"
	"hrdesk/internal/platform/jobs"
	"hrdesk/internal/platform/metrics"
	"hrdesk/internal/platform/realtime"
	"hrdesk/internal/transport/http/api"
	announcementshandler "hrdesk/internal/transport/http/handlers/announcements"
	applicationshandler "hrdesk/internal/transport/http/handlers/applications"
	attendancehandler "hrdesk/internal/transport/http/handlers/attendance"
	audithandler "hrdesk/internal/transport/http/handlers/audit"
	authhandler "hrdesk/internal/transport/http/handlers/auth"
	corehandler "hrdesk/internal/transport/http/handlers/core"
	dashboardhandler "hrdesk/internal/transport/http/handlers/dashboard"
	expenseshandler "hrdesk/internal/transport/http/handlers/expenses"
	holidayshandler "hrdesk/internal/transport/http/handlers/holidays"
	jobshandler "hrdesk/internal/transport/http/handlers/jobs"
	notificationshandler "hrdesk/internal/transport/http/handlers/notifications"
	payrollhandler "hrdesk/internal/transport/http/handlers/payroll"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/migrations"
)

const idempotencyRetention = 24 * time.Hour

type App struct {
	Config  config.Config
	DB      *db.Pool
	Redis   *redis.Client
	Router  http.Handler
	Jobs    *jobs.Service
	Hub     *realtime.Hub
	Metrics *metrics.Collector
}

// services is the wired domain layer shared by the router and the scheduler.
type services struct {
	auth          *auth.Service
	core          *core.Service
	applications  *applications.Service
	attendance    *attendance.Service
	expenses      *expenses.Service
	payroll       *payroll.Service
	holidays      *holidays.Service
	announcements *announcements.Service
	notifications *notifications.Service
	dashboard     *dashboard.Service
	audit         *audit.Service
	idempotency   *middleware.PGIdempotencyStore
}

// New connects to Postgres and Redis, applies migrations and seed data when
// configured, and builds the router. Callers own Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Metrics: metrics.New()}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	app.Redis, err = cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Hub = realtime.New(app.Redis, app.Metrics)

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	if !sealer.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY unset, bank accounts are stored in clear text and MFA is unavailable")
	}

	app.Jobs = jobs.New(jobs.NewStore(pool), cfg.Location(), app.Metrics)
	svc := app.wire(sealer)
	app.registerJobs(svc)

	app.Router, err = app.routes(svc)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(sealer *crypto.Service) *services {
	cfg := a.Config
	pool := a.DB

	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg), a.Hub)
	notifier.Queue = a.Jobs
	holidaySvc := holidays.NewService(holidays.NewStore(pool))
	coreSvc := core.NewService(core.NewStore(pool), sealer)
	attendanceSvc := attendance.NewService(
		attendance.NewStore(pool),
		attendance.Schedule{Start: cfg.WorkDayStart, End: cfg.WorkDayEnd, Location: cfg.Location()},
		coreSvc, holidaySvc, notifier,
	)
	applicationSvc := applications.NewService(applications.NewStore(pool), coreSvc, coreSvc, holidaySvc, notifier)
	expenseSvc := expenses.NewService(expenses.NewStore(pool), coreSvc, coreSvc, notifier)
	payrollSvc := payroll.NewService(payroll.NewStore(pool), coreSvc, attendanceSvc, holidaySvc, notifier, payroll.Rates{
		TaxPercent:        cfg.TaxRate(),
		LatenessPerMinute: cfg.LatenessRate(),
	})

	return &services{
		auth:          auth.NewService(auth.NewStore(pool), sealer, cfg.JWTSecret, cfg.TokenTTL),
		core:          coreSvc,
		applications:  applicationSvc,
		attendance:    attendanceSvc,
		expenses:      expenseSvc,
		payroll:       payrollSvc,
		holidays:      holidaySvc,
		announcements: announcements.NewService(announcements.NewStore(pool), coreSvc, notifier),
		notifications: notifier,
		dashboard: dashboard.NewService(
			dashboard.NewStore(pool), applicationSvc, expenseSvc, attendanceSvc, payrollSvc, notifier,
		),
		audit:       audit.New(pool),
		idempotency: middleware.NewIdempotencyStore(pool),
	}
}

func (a *App) registerJobs(svc *services) {
	a.Jobs.Register(jobs.JobAbsenceSweep, svc.attendance.SweepYesterday)
	a.Jobs.Register(jobs.JobSessionCleanup, func(ctx context.Context, tenantID string) (any, error) {
		sessions, err := svc.auth.CleanupSessions(ctx, tenantID)
		if err != nil {
			return sessions, err
		}
		keys, err := svc.idempotency.DeleteBefore(ctx, tenantID, time.Now().Add(-idempotencyRetention))
		return map[string]any{"sessions": sessions, "idempotencyKeys": keys}, err
	})
}

func (a *App) routes(svc *services) (http.Handler, error) {
	cfg := a.Config
	limitStore, err := middleware.NewRateLimitStore(a.Redis)
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}

	authHandler := authhandler.NewHandler(svc.auth, svc.notifications, svc.audit, cfg.AppBaseURL)
	coreHandler := corehandler.NewHandler(svc.core, svc.audit)
	applicationsHandler := applicationshandler.NewHandler(svc.applications, svc.audit, svc.idempotency)
	attendanceHandler := attendancehandler.NewHandler(svc.attendance, svc.audit)
	expensesHandler := expenseshandler.NewHandler(svc.expenses, svc.audit, svc.idempotency)
	payrollHandler := payrollhandler.NewHandler(svc.payroll, svc.audit, svc.idempotency)
	holidaysHandler := holidayshandler.NewHandler(svc.holidays, svc.audit)
	announcementsHandler := announcementshandler.NewHandler(svc.announcements, svc.audit)
	notificationsHandler := notificationshandler.NewHandler(svc.notifications, a.Hub)
	dashboardHandler := dashboardhandler.NewHandler(svc.dashboard)
	auditHandler := audithandler.NewHandler(svc.audit)
	jobsHandler := jobshandler.NewHandler(a.Jobs, svc.audit)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, svc.auth))
	router.Use(middleware.RateLimit(limitStore, cfg.RateLimitPerMinute, time.Minute, middleware.WithMetrics(a.Metrics)))
	router.Use(middleware.SensitiveMutationRateLimit(limitStore, cfg.RateLimitPerMinute, time.Minute, a.Metrics))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", authHandler.RegisterPublic)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			coreHandler.RegisterAdmin(r)
			applicationsHandler.RegisterReview(r)
			attendanceHandler.RegisterAdmin(r)
			expensesHandler.RegisterAdmin(r)
			payrollHandler.RegisterAdmin(r)
			holidaysHandler.RegisterAdmin(r)
			announcementsHandler.RegisterAuthoring(r)
			dashboardHandler.RegisterAdmin(r)
			auditHandler.RegisterAdmin(r)
			jobsHandler.RegisterAdmin(r)
			if cfg.MetricsEnabled {
				r.Get("/metrics", a.handleMetrics)
			}
		})

		r.Route("/manager", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleManager))
			coreHandler.RegisterManager(r)
			applicationsHandler.RegisterReview(r)
			attendanceHandler.RegisterManager(r)
			expensesHandler.RegisterManager(r)
			announcementsHandler.RegisterAuthoring(r)
			dashboardHandler.RegisterManager(r)
		})

		r.Route("/employee", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleEmployee, auth.RoleManager))
			coreHandler.RegisterEmployee(r)
			applicationsHandler.RegisterEmployee(r)
			attendanceHandler.RegisterEmployee(r)
			expensesHandler.RegisterEmployee(r)
			payrollHandler.RegisterEmployee(r)
			dashboardHandler.RegisterEmployee(r)
		})

		r.Route("/shared", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			authHandler.RegisterShared(r)
			coreHandler.RegisterShared(r)
			holidaysHandler.RegisterShared(r)
			announcementsHandler.RegisterShared(r)
			notificationsHandler.RegisterShared(r)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", middleware.GetRequestID(r.Context()))
	})
	return router, nil
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := a.Metrics.Snapshot()
	snapshot["websocketSessions"] = a.Hub.Sessions()
	snapshot["dbTotalConns"] = a.DB.Stat().TotalConns()
	api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// The scheduler and the realtime fan-out run alongside the listener.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.Config.RunScheduler {
		if err := a.Jobs.Schedule(a.Config.AbsenceSweepSchedule, jobs.JobAbsenceSweep); err != nil {
			return fmt.Errorf("schedule %s: %w", jobs.JobAbsenceSweep, err)
		}
		if err := a.Jobs.Schedule(a.Config.SessionCleanupSchedule, jobs.JobSessionCleanup); err != nil {
			return fmt.Errorf("schedule %s: %w", jobs.JobSessionCleanup, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})
	// the worker also sends queued notification mail, so it runs even
	// when the scheduler is off
	a.Jobs.Start(ctx)
	defer a.Jobs.Stop()
	g.Go(func() error {
		slog.Info("hrdesk listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.Hub != nil {
		if err := a.Hub.Close(); err != nil {
			slog.Warn("realtime hub close failed", "err", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
