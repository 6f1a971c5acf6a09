package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/semmidev/rdsbackup/internal/config"
	"github.com/semmidev/rdsbackup/internal/domain"
)

var errEmptyDump = errors.New("dump produced an empty artifact")

// DumpExecutor runs the dump capability and turns its output into an Artifact.
type DumpExecutor struct {
	dumper    domain.Dumper
	workDir   string
	preflight bool
	logger    Logger
	now       func() time.Time
}

func NewDumpExecutor(dumper domain.Dumper, workDir string, preflight bool, logger Logger) *DumpExecutor {
	return &DumpExecutor{
		dumper:    dumper,
		workDir:   workDir,
		preflight: preflight,
		logger:    logger,
		now:       time.Now,
	}
}

// Dump writes a dump of db to a per-run file under the work directory. On
// any failure the partial file is removed and a *domain.DumpError returned.
func (e *DumpExecutor) Dump(ctx context.Context, db config.DatabaseConfig, runID string) (domain.Artifact, error) {
	createdAt := e.now().UTC().Truncate(time.Second)
	outputPath := filepath.Join(e.workDir, runID+"-"+domain.ArtifactName(db.Name, createdAt))

	params := domain.DumpParams{
		Host:       db.Host,
		Port:       db.Port,
		Database:   db.Name,
		Username:   db.Username,
		Password:   db.Password,
		SSLMode:    db.SSLMode,
		OutputPath: outputPath,
	}

	if pinger, ok := e.dumper.(domain.Pinger); ok && e.preflight {
		e.logger.Infof("[%s] Checking connectivity to %s:%d", db.Name, db.Host, db.Port)
		if err := pinger.Ping(ctx, params); err != nil {
			return domain.Artifact{}, asDumpError(db.Name, fmt.Errorf("preflight: %w", err))
		}
	}

	e.logger.Infof("[%s] Dumping to %s", db.Name, outputPath)
	start := e.now()
	path, err := e.dumper.Dump(ctx, params)
	elapsed := e.now().Sub(start)
	if path == "" {
		path = outputPath
	}
	if err != nil {
		e.discard(db.Name, outputPath, path)
		return domain.Artifact{}, asDumpError(db.Name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		e.discard(db.Name, outputPath, path)
		return domain.Artifact{}, asDumpError(db.Name, fmt.Errorf("stat artifact: %w", err))
	}
	if info.Size() == 0 {
		e.discard(db.Name, outputPath, path)
		return domain.Artifact{}, asDumpError(db.Name, errEmptyDump)
	}

	artifact := domain.Artifact{
		Path:         path,
		Database:     db.Name,
		CreatedAt:    createdAt,
		Size:         info.Size(),
		DumpDuration: elapsed,
	}

	e.logger.Infof("[%s] Dump completed in %s, size: %.2f MB",
		db.Name, elapsed.Round(time.Millisecond), artifact.SizeMB())

	return artifact, nil
}

func (e *DumpExecutor) discard(dbName string, paths ...string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			e.logger.Warnf("[%s] Failed to remove partial dump %s: %v", dbName, p, err)
		}
	}
}

func asDumpError(dbName string, err error) error {
	var dumpErr *domain.DumpError
	if errors.As(err, &dumpErr) {
		return err
	}
	return &domain.DumpError{Database: dbName, Err: err}
}
