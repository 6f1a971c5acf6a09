package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/viper"

	"github.com/semmidev/rdsbackup/internal/adapter/database"
	"github.com/semmidev/rdsbackup/internal/adapter/metrics"
	"github.com/semmidev/rdsbackup/internal/adapter/notifier"
	"github.com/semmidev/rdsbackup/internal/adapter/storage"
	"github.com/semmidev/rdsbackup/internal/config"
	"github.com/semmidev/rdsbackup/internal/domain"
	"github.com/semmidev/rdsbackup/internal/infrastructure/logger"
	"github.com/semmidev/rdsbackup/internal/infrastructure/scheduler"
	"github.com/semmidev/rdsbackup/internal/usecase"
)

// App runs one backup: configure, dump, upload, then notify.
type App struct {
	source  *viper.Viper
	loadErr error
	logger  *logger.Logger
	now     func() time.Time
	runID   func() string

	dumper    domain.Dumper
	storage   domain.Storage
	notifiers []domain.Notifier
	metrics   domain.Metrics
}

type Option func(*App)

// WithDumper replaces the pg_dump capability.
func WithDumper(d domain.Dumper) Option {
	return func(a *App) { a.dumper = d }
}

// WithStorage replaces the storage built from STORAGE_BACKEND.
func WithStorage(s domain.Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithNotifiers replaces the channels built from configuration.
func WithNotifiers(n ...domain.Notifier) Option {
	return func(a *App) { a.notifiers = n }
}

func WithMetrics(m domain.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLoadError records a failure to read the configuration file. The run
// then fails at configuration and reports it.
func WithLoadError(err error) Option {
	return func(a *App) { a.loadErr = err }
}

func WithRunID(fn func() string) Option {
	return func(a *App) { a.runID = fn }
}

func New(source *viper.Viper, log *logger.Logger, opts ...Option) *App {
	a := &App{
		source: source,
		logger: log,
		now:    time.Now,
		runID:  func() string { return ksuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes a single backup and returns its outcome. The outcome is
// reported exactly once, whichever stage ends the run.
func (a *App) Run(ctx context.Context) (outcome domain.Outcome) {
	runID := a.runID()
	started := a.now().UTC()

	cfg, cfgErr := config.Resolve(a.source)
	if a.loadErr != nil {
		cfgErr = errors.Join(a.loadErr, cfgErr)
	}
	log := a.logger.WithRun(runID, cfg.Database.Name)
	reporter := a.reporter(ctx, cfg, log)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Backup aborted: %v", r)
			outcome = domain.Outcome{
				RunID:     runID,
				Status:    domain.StatusFailure,
				Database:  cfg.Database.Name,
				Host:      cfg.Database.Host,
				StartedAt: started,
				Duration:  a.now().Sub(started),
				Err:       fmt.Errorf("internal error: %v", r),
			}
		}
		if err := reporter.Report(ctx, outcome); err != nil {
			log.Warnf("Notification incomplete: %v", err)
		}
		log.Infof("Run finished with exit code %d: %s", domain.ExitCode(outcome), outcome)
	}()

	fail := func(err error) domain.Outcome {
		log.Errorf("Configuration failed: %v", err)
		return domain.Outcome{
			RunID:     runID,
			Status:    domain.StatusFailure,
			Database:  cfg.Database.Name,
			Host:      cfg.Database.Host,
			StartedAt: started,
			Duration:  a.now().Sub(started),
			Stage:     domain.StageConfiguration,
			Err:       err,
		}
	}

	if cfgErr != nil {
		return fail(cfgErr)
	}

	store, err := a.buildStorage(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	log.Infof("Uploading to %s storage", store.Name())

	dumper := a.dumper
	if dumper == nil {
		dumper = database.NewPostgreSQL(cfg.Database.DumpPath)
	}

	backup := usecase.NewBackup(
		cfg.Database,
		usecase.NewDumpExecutor(dumper, cfg.WorkDir, cfg.Database.Preflight, log),
		usecase.NewUploader(store, cfg.Storage.Prefix, cfg.Upload.MaxAttempts, cfg.Upload.RetryDelay, log),
		log,
		cfg.Timeout,
	)

	return backup.Execute(ctx, runID)
}

func (a *App) buildStorage(ctx context.Context, cfg config.Config) (domain.Storage, error) {
	if a.storage != nil {
		return a.storage, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendS3:
		return storage.NewS3(ctx, cfg.Storage, cfg.Region)
	case config.BackendMinIO:
		return storage.NewMinIO(cfg.Storage, cfg.Region)
	case config.BackendGDrive:
		return storage.NewGDrive(ctx, cfg.Storage)
	case config.BackendLocal:
		return storage.NewLocal(cfg.Storage.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// reporter is built from whatever configuration resolved, so that a
// configuration failure can still be announced. Channels that cannot be
// created are skipped with a warning.
func (a *App) reporter(ctx context.Context, cfg config.Config, log *logger.Logger) *usecase.Reporter {
	notifiers := a.notifiers
	if notifiers == nil {
		if cfg.Notify.TopicARN != "" {
			sns, err := notifier.NewSNS(ctx, cfg.Region, cfg.Notify.TopicARN)
			if err != nil {
				log.Warnf("SNS notifications disabled: %v", err)
			} else {
				notifiers = append(notifiers, sns)
			}
		}
		if cfg.Notify.TelegramEnabled() {
			tg, err := notifier.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
			if err != nil {
				log.Warnf("Telegram notifications disabled: %v", err)
			} else {
				notifiers = append(notifiers, tg)
			}
		}
	}

	m := a.metrics
	if m == nil && cfg.MetricsNamespace != "" {
		cw, err := metrics.NewCloudWatch(ctx, cfg.Region, cfg.MetricsNamespace)
		if err != nil {
			log.Warnf("CloudWatch metrics disabled: %v", err)
		} else {
			m = cw
		}
	}

	var schedule *scheduler.Schedule
	if cfg.Schedule != "" {
		s, err := scheduler.Parse(cfg.Schedule)
		if err != nil {
			log.Warnf("Ignoring %s, next run will not be reported: %v", config.KeyBackupSchedule, err)
		} else {
			log.Infof("Runs are expected on schedule %s", s)
			schedule = s
		}
	}

	return usecase.NewReporter(notifiers, m, schedule, log)
}
