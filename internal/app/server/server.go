package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"onboarding/internal/domain/audit"
	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/domain/events"
	"onboarding/internal/domain/notifications"
	"onboarding/internal/domain/onboarding"
	"onboarding/internal/domain/progress"
	"onboarding/internal/platform/config"
	cryptoutil "onboarding/internal/platform/crypto"
	"onboarding/internal/platform/db"
	"onboarding/internal/platform/email"
	"onboarding/internal/platform/jobs"
	"onboarding/internal/platform/metrics"
	"onboarding/internal/platform/storage"
	"onboarding/internal/transport/http/api"
	audithandler "onboarding/internal/transport/http/handlers/audit"
	authhandler "onboarding/internal/transport/http/handlers/auth"
	corehandler "onboarding/internal/transport/http/handlers/core"
	notificationshandler "onboarding/internal/transport/http/handlers/notifications"
	onboardinghandler "onboarding/internal/transport/http/handlers/onboarding"
	"onboarding/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Metrics *metrics.Collector
	Jobs    *jobs.Service

	onboarding *onboarding.Service
	relay      *events.RedisRelay
	redis      *redis.Client
	objects    storage.ObjectStore
}

// New connects to the backing services, applies migrations and seed data
// when enabled, and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = ephemeralSecret()
		slog.Warn("JWT_SECRET not set; sessions will not survive a restart")
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	cipher, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if !cipher.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set; sensitive form data is stored unencrypted")
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	profiles, err := progress.LoadProfiles(cfg.FormKeysFile)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.DefaultFormProfile != "" {
		if _, err := profiles.Keys(cfg.DefaultFormProfile); err != nil {
			pool.Close()
			return nil, fmt.Errorf("DEFAULT_FORM_PROFILE: %w", err)
		}
		profiles.Default = cfg.DefaultFormProfile
	}

	app := &App{
		Config:  cfg,
		DB:      pool,
		Metrics: metrics.New(),
		objects: objects,
	}

	broker := events.NewBroker()
	broker.Observer = app.Metrics
	var publisher events.Publisher = broker
	if cfg.RedisAddr != "" {
		client, err := events.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			pool.Close()
			return nil, err
		}
		app.redis = client
		app.relay = events.NewRedisRelay(client, cfg.EventsChannel, broker)
		publisher = app.relay
	}

	mailer := email.New(cfg)
	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore, cfg.JWTSecret, cipher)
	authService.Mailer = mailer
	authService.MailFrom = cfg.EmailFrom

	coreService := core.NewService(core.NewStore(pool, cipher))
	notifier := notifications.New(notifications.NewStore(pool), mailer)
	auditTrail := audit.New(pool)

	onboardingService := onboarding.NewService(onboarding.NewStore(pool, cipher), coreService, objects, profiles)
	onboardingService.Events = publisher
	onboardingService.Notifier = notifier
	onboardingService.Audit = auditTrail
	onboardingService.MaxUploadBytes = cfg.MaxUploadBytes
	onboardingService.DraftReminderAge = cfg.DraftReminderAge
	app.onboarding = onboardingService

	app.Jobs = jobs.New(jobs.PGRuns{DB: pool})

	onboardingHandler := onboardinghandler.NewHandler(onboardingService, broker)
	if app.redis != nil {
		onboardingHandler.Idempotency = middleware.NewRedisIdempotency(app.redis, "")
	} else {
		onboardingHandler.Idempotency = middleware.NewIdempotencyStore(pool)
	}
	onboardingHandler.Reminders = reminderRunner{jobs: app.Jobs, reminders: onboardingService}
	onboardingHandler.Uploads = app.Metrics
	onboardingHandler.MaxUploadBytes = cfg.MaxUploadBytes

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(app.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(authService, cfg.SessionCookieName))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", app.handleReady)
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := app.Metrics.Snapshot()
			snapshot["eventSubscribers"] = broker.Subscribers()
			api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(authService, cfg.SessionCookieName, cfg.IsProduction()).RegisterRoutes(r)
		corehandler.NewHandler(coreService, auditTrail, authStore).RegisterRoutes(r)
		onboardingHandler.RegisterRoutes(r)
		notificationshandler.NewHandler(notifier).RegisterRoutes(r)
		audithandler.NewHandler(auditTrail, authStore).RegisterRoutes(r)
	})

	app.Router = router
	return app, nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.MinioEndpoint == "" {
		slog.Warn("MINIO_ENDPOINT not set; uploads are kept in memory")
		return storage.NewMemory(), nil
	}
	store, err := storage.NewMinio(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return store, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if p, ok := a.objects.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Start launches the background workers. They stop with ctx.
func (a *App) Start(ctx context.Context) {
	a.Jobs.Start(ctx, a.onboarding, a.Config.DraftReminderInterval)
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("redis relay stopped", "err", err)
			}
		}()
	}
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	a.DB.Close()
}

// reminderRunner runs the draft reminder sweep through the job service so
// manual runs are recorded in job_runs like scheduled ones.
type reminderRunner struct {
	jobs      *jobs.Service
	reminders jobs.DraftReminders
}

func (r reminderRunner) RunReminders(ctx context.Context, tenantID string) (any, error) {
	return r.jobs.RunNow(ctx, jobs.JobDraftReminders, tenantID, jobs.ReminderJob(r.reminders))
}

func ephemeralSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
