package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	DefaultKeyPrefix = "backups"

	// TimestampLayout is embedded in artifact names, always in UTC.
	TimestampLayout = "2006-01-02-150405"
)

// ArtifactName returns backup-<database>-<timestamp>.dump.
func ArtifactName(database string, t time.Time) string {
	return fmt.Sprintf("backup-%s-%s.dump", database, t.UTC().Format(TimestampLayout))
}

// StorageKey returns <prefix>/<YYYY>/<MM>/<DD>/backup-<database>-<timestamp>.dump.
// An empty prefix means DefaultKeyPrefix. Two runs for the same database
// within the same second produce the same key.
func StorageKey(prefix, database string, t time.Time) string {
	t = t.UTC()
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return path.Join(prefix, t.Format("2006/01/02"), ArtifactName(database, t))
}
