package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigurationError lists every missing or invalid setting found while
// resolving a run configuration. It is never retried.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return "invalid configuration"
	}
	return strings.Join(parts, "; ")
}

// DumpError is a failed or empty database dump. Stderr holds the full
// diagnostic output of the dump tool.
type DumpError struct {
	Database string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DumpError) Error() string {
	msg := fmt.Sprintf("dump of %s failed", e.Database)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *DumpError) Unwrap() error { return e.Err }

// UploadError is the terminal failure of the upload stage.
type UploadError struct {
	Key       string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *UploadError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("upload of %s failed after %d attempt(s) (%s): %v", e.Key, e.Attempts, kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// NotificationError is logged only and never changes the run outcome.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// TimeoutError is raised when the run-level deadline expires during a stage.
type TimeoutError struct {
	Stage   Stage
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s stage timed out (run timeout %s)", e.Stage, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// StorageError classifies a failed transfer reported by a Storage.
type StorageError struct {
	Transient bool
	Err       error
}

func (e *StorageError) Error() string { return e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// Transient marks err as eligible for retry.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Transient: true, Err: err}
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Transient: false, Err: err}
}

// IsTransient reports whether err was classified as transient by a Storage.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Transient
}

const (
	ExitOK            = 0
	ExitInternal      = 1
	ExitConfiguration = 2
	ExitDump          = 3
	ExitUpload        = 4
	ExitTimeout       = 5
)

// ExitCode maps an outcome to the process exit status.
func ExitCode(o Outcome) int {
	if o.Succeeded() {
		return ExitOK
	}

	var timeoutErr *TimeoutError
	if errors.As(o.Err, &timeoutErr) {
		return ExitTimeout
	}

	switch o.Stage {
	case StageConfiguration:
		return ExitConfiguration
	case StageDump:
		return ExitDump
	case StageUpload:
		return ExitUpload
	default:
		return ExitInternal
	}
}
