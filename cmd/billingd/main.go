package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	billingmodule "github.com/fieldvine/billing/modules/billing"
	"github.com/fieldvine/billing/pkg/config"
	"github.com/fieldvine/billing/pkg/email"
	"github.com/fieldvine/billing/pkg/environment"
	"github.com/fieldvine/billing/pkg/export"
	"github.com/fieldvine/billing/pkg/file"
	"github.com/fieldvine/billing/pkg/httpserver"
	"github.com/fieldvine/billing/pkg/ledger"
	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/logger"
	"github.com/fieldvine/billing/pkg/notification"
	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/pg"
	"github.com/fieldvine/billing/pkg/queue"
	"github.com/fieldvine/billing/pkg/ratelimiter"
	"github.com/fieldvine/billing/pkg/requestid"
	"github.com/fieldvine/billing/pkg/subscription"
	"github.com/fieldvine/billing/pkg/tenant"
)

// Periodic job names. Workers and the scheduler must agree on them.
const (
	subscriptionSyncJob    = "billing.subscription_sync"
	renewalRemindersJob    = "billing.renewal_reminders"
	trialExpiringJob       = "billing.trial_expiring"
	subscriptionExpiredJob = "billing.subscription_expired"
)

// trialExpiringWindowDays is how far ahead the scheduled trial sweep looks.
const trialExpiringWindowDays = 3

type appConfig struct {
	AppEnv      environment.Environment `env:"APP_ENV" envDefault:"development"`
	ServiceName string                  `env:"SERVICE_NAME" envDefault:"billingd"`

	PlanLimitsPath string `env:"PLAN_LIMITS_PATH"`

	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"data/exports"`
	StorageBaseURL  string `env:"STORAGE_BASE_URL" envDefault:"http://localhost:8080/files"`
	DevEmailDir     string `env:"DEV_EMAIL_DIR" envDefault:"data/emails"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		appCfg    appConfig
		httpCfg   httpserver.Config
		queueCfg  queue.Config
		emailCfg  email.Config
		paddleCfg payment.PaddleConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&queueCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&paddleCfg)

	log := logger.New(
		logger.WithEnvironment(string(appCfg.AppEnv), appCfg.ServiceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			tenant.LoggerExtractor(),
			environment.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, log, appCfg, httpCfg, queueCfg, emailCfg, paddleCfg); err != nil &&
		!errors.Is(err, context.Canceled) {
		log.Error("billingd exited with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("billingd stopped")
}

func run(
	ctx context.Context,
	log *slog.Logger,
	appCfg appConfig,
	httpCfg httpserver.Config,
	queueCfg queue.Config,
	emailCfg email.Config,
	paddleCfg payment.PaddleConfig,
) error {
	// Stores. The in-memory implementations mirror the SQL contract; a
	// deployment backed by Postgres swaps them behind the same
	// interfaces without touching the wiring below.
	tenants := subscription.NewMemoryStore()
	payments := payment.NewMemoryStore()
	ledgerStore := ledger.NewMemoryStore()
	notifications := notification.NewMemoryStore()
	exports := export.NewMemoryStore()
	jobs := queue.NewMemoryStorage(
		queue.WithCompletedRetention(queueCfg.CompletedRetention),
		queue.WithFailedRetention(queueCfg.FailedRetention),
	)

	// The pool is optional for now: when PG_CONN_URL is set the pool is
	// established, migrations run, and the readiness probe covers it.
	var readiness []func(context.Context) error
	if os.Getenv("PG_CONN_URL") != "" {
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return err
		}
		readiness = append(readiness, pg.Healthcheck(pool))
	}

	enqueuer, err := queue.NewEnqueuer(jobs, queue.WithEnqueuerLogger(log))
	if err != nil {
		return err
	}

	notifier, err := notification.NewService(notifications, enqueuer,
		notification.WithServiceLogger(log))
	if err != nil {
		return err
	}

	synchronizer, err := subscription.NewSynchronizer(tenants,
		subscription.WithSyncLogger(log))
	if err != nil {
		return err
	}

	gateway, err := payment.NewPaddleGateway(paddleCfg)
	if err != nil {
		return err
	}

	processor, err := payment.NewProcessor(gateway, ledgerStore, payments,
		tenants, tenants, synchronizer, notifier,
		payment.WithProcessorLogger(log))
	if err != nil {
		return err
	}

	sweeper, err := notification.NewSweeper(tenants, notifier,
		notification.WithSweeperLogger(log))
	if err != nil {
		return err
	}

	storage, err := buildStorage(ctx, appCfg)
	if err != nil {
		return err
	}

	collectors := export.CollectorRegistry{}
	collectors.Register("payments", export.PaymentsCollector(payments))
	collectors.Register("plan_changes", export.PlanChangesCollector(tenants))

	generator, err := export.NewGenerator(exports, collectors, storage,
		export.WithGeneratorLogger(log))
	if err != nil {
		return err
	}

	retention, err := export.NewRetention(exports, storage,
		export.WithRetentionLogger(log))
	if err != nil {
		return err
	}

	exportSvc, err := export.NewService(exports, enqueuer,
		export.WithServiceLogger(log))
	if err != nil {
		return err
	}

	enforcer, err := buildEnforcer(ctx, appCfg, tenants, exports)
	if err != nil {
		return err
	}

	sender := buildEmailSender(appCfg, emailCfg, log)

	// Email dispatch ceiling: 10 sends per second, provider-friendly.
	sendBucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       10,
		RefillRate:     10,
		RefillInterval: time.Second,
	})
	if err != nil {
		return err
	}

	emailWorker, err := queue.NewWorker(jobs,
		queue.WithQueues(notification.EmailQueueName),
		queue.WithMaxConcurrentJobs(2),
		queue.WithDispatchRateLimit(sendBucket, "email_dispatch"),
		queue.WithPullInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithJobTimeout(queueCfg.JobTimeout),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := emailWorker.RegisterHandler(notification.NewSendEmailHandler(notifications, sender, log)); err != nil {
		return err
	}

	exportWorker, err := queue.NewWorker(jobs,
		queue.WithQueues(export.QueueName),
		queue.WithMaxConcurrentJobs(4),
		queue.WithPullInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithJobTimeout(queueCfg.JobTimeout),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := exportWorker.RegisterHandler(generator.Handler()); err != nil {
		return err
	}

	periodicWorker, err := queue.NewWorker(jobs,
		queue.WithQueues(queue.DefaultQueueName),
		queue.WithPullInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithJobTimeout(queueCfg.JobTimeout),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := periodicWorker.RegisterHandlers(
		retention.Handler(),
		queue.NewPeriodicJobHandler(subscriptionSyncJob, func(ctx context.Context) error {
			_, err := synchronizer.Run(ctx)
			return err
		}),
		queue.NewPeriodicJobHandler(renewalRemindersJob, func(ctx context.Context) error {
			_, err := sweeper.RenewalReminders(ctx)
			return err
		}),
		queue.NewPeriodicJobHandler(trialExpiringJob, func(ctx context.Context) error {
			_, err := sweeper.TrialExpiring(ctx, trialExpiringWindowDays)
			return err
		}),
		queue.NewPeriodicJobHandler(subscriptionExpiredJob, func(ctx context.Context) error {
			_, err := sweeper.SubscriptionExpired(ctx)
			return err
		}),
	); err != nil {
		return err
	}

	scheduler, err := queue.NewScheduler(jobs, queue.WithSchedulerLogger(log))
	if err != nil {
		return err
	}
	for name, schedule := range map[string]queue.Schedule{
		subscriptionSyncJob:     queue.DailyAt(4, 0),
		renewalRemindersJob:     queue.DailyAt(8, 0),
		trialExpiringJob:        queue.DailyAt(8, 30),
		subscriptionExpiredJob:  queue.DailyAt(9, 0),
		export.RetentionJobName: queue.DailyAt(2, 0),
	} {
		if err := scheduler.AddJob(name, schedule); err != nil {
			return err
		}
	}

	module, err := billingmodule.NewModule(billingmodule.Deps{
		Processor:    processor,
		Tenants:      tenants,
		Checkout:     gateway,
		Payments:     payments,
		PlanChanges:  tenants,
		Limits:       enforcer,
		Synchronizer: synchronizer,
		Sweeper:      sweeper,
		Enqueuer:     enqueuer,
		Exports:      exportSvc,
		ExportStore:  exports,
		Retention:    retention,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(environment.Middleware(appCfg.AppEnv))
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	router.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, readiness...))
	// Principal injection (session or API token validation) is owned by
	// the gateway in front of this service; the tenant guard rejects
	// anything that arrives without one.
	router.Mount("/", module.Router())

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("listening", slog.String("addr", httpCfg.Addr))
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(emailWorker.Run(gctx))
	g.Go(exportWorker.Run(gctx))
	g.Go(periodicWorker.Run(gctx))
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error { return srv.Run(gctx, router) })

	return g.Wait()
}

// buildStorage picks S3 when a bucket is configured, otherwise local disk.
func buildStorage(ctx context.Context, appCfg appConfig) (file.Storage, error) {
	var s3Cfg file.S3Config
	config.MustLoad(&s3Cfg)

	if s3Cfg.Bucket != "" {
		return file.NewS3Storage(ctx, s3Cfg)
	}
	return file.NewLocalStorage(appCfg.StorageLocalDir, appCfg.StorageBaseURL)
}

// buildEnforcer loads plan limits from YAML when a path is configured,
// falling back to the static catalog table. The exports counter is
// backed by the export store this binary owns; counters for
// field-service resources (users, clients, jobs, quotes) are
// registered by the services owning those records, so their usage
// reads zero until those services come up.
func buildEnforcer(ctx context.Context, appCfg appConfig, tenants subscription.TenantStore, exports export.Store) (limits.Enforcer, error) {
	var source limits.Source
	if appCfg.PlanLimitsPath != "" {
		source = limits.NewYAMLSource(appCfg.PlanLimitsPath)
	} else {
		source = limits.NewInMemSource(defaultPlanLimits())
	}

	counters := limits.NewRegistry()
	counters.Register(limits.ResourceExports, func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		return exports.CountSince(ctx, tenantID, since)
	})

	return limits.NewEnforcer(ctx, source, counters,
		func(ctx context.Context, tenantID uuid.UUID) (subscription.PlanID, subscription.Status, error) {
			t, err := tenants.Get(ctx, tenantID)
			if err != nil {
				return "", "", err
			}
			return t.Plan, t.Status, nil
		})
}

func defaultPlanLimits() map[subscription.PlanID]limits.Plan {
	return map[subscription.PlanID]limits.Plan{
		subscription.PlanBasic: {
			ID:   subscription.PlanBasic,
			Name: "Basic",
			Limits: map[limits.Resource]int64{
				limits.ResourceUsers:   3,
				limits.ResourceClients: 50,
				limits.ResourceJobs:    100,
				limits.ResourceQuotes:  50,
				limits.ResourceExports: 2,
			},
		},
		subscription.PlanPro: {
			ID:   subscription.PlanPro,
			Name: "Pro",
			Limits: map[limits.Resource]int64{
				limits.ResourceUsers:   10,
				limits.ResourceClients: 500,
				limits.ResourceJobs:    1000,
				limits.ResourceQuotes:  500,
				limits.ResourceExports: 20,
			},
		},
		subscription.PlanElite: {
			ID:   subscription.PlanElite,
			Name: "Elite",
			Limits: map[limits.Resource]int64{
				limits.ResourceUsers:   limits.Unlimited,
				limits.ResourceClients: limits.Unlimited,
				limits.ResourceJobs:    limits.Unlimited,
				limits.ResourceQuotes:  limits.Unlimited,
				limits.ResourceExports: limits.Unlimited,
			},
		},
	}
}

// buildEmailSender uses Postmark when a server token is configured and
// the file-writing dev sender otherwise.
func buildEmailSender(appCfg appConfig, emailCfg email.Config, log *slog.Logger) email.EmailSender {
	if emailCfg.PostmarkServerToken != "" {
		return email.MustNewPostmarkClient(emailCfg)
	}
	log.Warn("no Postmark token configured, writing emails to disk",
		slog.String("dir", appCfg.DevEmailDir))
	return email.NewDevSender(appCfg.DevEmailDir)
}
