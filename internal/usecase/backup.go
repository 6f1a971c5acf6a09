package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/semmidev/rdsbackup/internal/config"
	"github.com/semmidev/rdsbackup/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Backup runs the dump and upload stages of a run under the run timeout.
type Backup struct {
	db       config.DatabaseConfig
	dumper   *DumpExecutor
	uploader *Uploader
	logger   Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewBackup(
	db config.DatabaseConfig,
	dumper *DumpExecutor,
	uploader *Uploader,
	logger Logger,
	timeout time.Duration,
) *Backup {
	return &Backup{
		db:       db,
		dumper:   dumper,
		uploader: uploader,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Execute dumps the database and uploads the artifact. When the run timeout
// expires the in-flight stage is cancelled and reported as a timeout.
func (uc *Backup) Execute(ctx context.Context, runID string) domain.Outcome {
	start := uc.now()
	outcome := domain.Outcome{
		RunID:     runID,
		Database:  uc.db.Name,
		Host:      uc.db.Host,
		StartedAt: start.UTC(),
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	uc.logger.Infof("[%s] Starting backup of %s:%d", uc.db.Name, uc.db.Host, uc.db.Port)

	artifact, err := uc.dumper.Dump(ctx, uc.db, runID)
	if err != nil {
		return uc.fail(ctx, outcome, domain.StageDump, err)
	}
	outcome.DumpDuration = artifact.DumpDuration

	result, err := uc.uploader.Upload(ctx, artifact)
	outcome.Key = result.Key
	outcome.Location = result.Location
	outcome.Attempts = result.Attempts
	if err != nil {
		return uc.fail(ctx, outcome, domain.StageUpload, err)
	}

	outcome.Status = domain.StatusSuccess
	outcome.Size = artifact.Size
	outcome.Duration = uc.now().Sub(start)

	uc.logger.Infof("[%s] Backup completed in %s: %s",
		uc.db.Name, outcome.Duration.Round(time.Second), outcome.Location)

	return outcome
}

func (uc *Backup) fail(ctx context.Context, outcome domain.Outcome, stage domain.Stage, err error) domain.Outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &domain.TimeoutError{Stage: stage, Timeout: uc.timeout, Err: err}
	}

	outcome.Status = domain.StatusFailure
	outcome.Stage = stage
	outcome.Err = err
	outcome.Duration = uc.now().Sub(outcome.StartedAt)

	uc.logger.Errorf("[%s] Backup failed at %s stage: %v", uc.db.Name, stage, err)
	return outcome
}
