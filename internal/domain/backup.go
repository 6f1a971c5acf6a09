package domain

import (
	"fmt"
	"time"
)

// Status is the externally published result of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Stage names a phase of a run and is used to attribute failures.
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StageDump          Stage = "dump"
	StageUpload        Stage = "upload"
)

// Artifact is the local output of a dump. It lives on transient storage
// only for the duration of a run.
type Artifact struct {
	Path         string
	Database     string
	CreatedAt    time.Time
	Size         int64
	DumpDuration time.Duration
}

// SizeMB returns the artifact size in megabytes.
func (a Artifact) SizeMB() float64 {
	return float64(a.Size) / (1024 * 1024)
}

// Outcome is the single terminal result of a run. Success outcomes carry the
// storage key, size and duration; failure outcomes carry the stage and error.
type Outcome struct {
	RunID     string
	Status    Status
	Database  string
	Host      string
	StartedAt time.Time
	Duration  time.Duration

	// DumpDuration is the wall-clock time pg_dump took, zero if it never completed.
	DumpDuration time.Duration

	Key      string
	Location string
	Size     int64
	Attempts int

	Stage Stage
	Err   error
}

// Succeeded reports whether the run completed successfully.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Detail is the human-readable failure text, empty on success.
func (o Outcome) Detail() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// SizeMB returns the uploaded artifact size in megabytes.
func (o Outcome) SizeMB() float64 {
	return float64(o.Size) / (1024 * 1024)
}

func (o Outcome) String() string {
	if o.Succeeded() {
		return fmt.Sprintf("success: %s -> %s (%.2f MB, %s)", o.Database, o.Key, o.SizeMB(), o.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("failure at %s: %s", o.Stage, o.Detail())
}
