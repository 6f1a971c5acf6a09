package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/semmidev/rdsbackup/internal/domain"
	"github.com/semmidev/rdsbackup/internal/infrastructure/scheduler"
)

const DefaultReportTimeout = 30 * time.Second

// Reporter publishes the outcome of a run: metrics first, then one message
// to every configured channel. Nothing it does changes the outcome.
type Reporter struct {
	notifiers []domain.Notifier
	metrics   domain.Metrics
	schedule  *scheduler.Schedule
	logger    Logger
	timeout   time.Duration
}

func NewReporter(notifiers []domain.Notifier, metrics domain.Metrics, schedule *scheduler.Schedule, logger Logger) *Reporter {
	return &Reporter{
		notifiers: notifiers,
		metrics:   metrics,
		schedule:  schedule,
		logger:    logger,
		timeout:   DefaultReportTimeout,
	}
}

// Report runs on its own deadline so that it still works after the run
// context expired. The returned error joins every *domain.NotificationError.
func (r *Reporter) Report(ctx context.Context, outcome domain.Outcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if r.metrics != nil {
		if err := r.metrics.Put(ctx, BuildMetrics(outcome)); err != nil {
			r.logger.Warnf("Failed to publish metrics: %v", err)
		}
	}

	if len(r.notifiers) == 0 {
		r.logger.Infof("No notification channel configured, skipping notification")
		return nil
	}

	var next time.Time
	if r.schedule != nil {
		next = r.schedule.Next(outcome.StartedAt)
	}
	msg := BuildMessage(outcome, next)

	var errs []error
	for _, n := range r.notifiers {
		if err := n.Publish(ctx, msg); err != nil {
			notifyErr := &domain.NotificationError{Channel: n.Name(), Err: err}
			r.logger.Errorf("Failed to send notification: %v", notifyErr)
			errs = append(errs, notifyErr)
			continue
		}
		r.logger.Infof("Notification sent via %s: %s", n.Name(), msg.Subject)
	}

	return errors.Join(errs...)
}

// BuildMessage renders the notification for an outcome. A zero next omits
// the next-run line.
func BuildMessage(o domain.Outcome, next time.Time) domain.Message {
	database := o.Database
	if database == "" {
		database = "unknown"
	}

	msg := domain.Message{
		RunID:    o.RunID,
		Status:   statusOf(o),
		Database: database,
		Stage:    o.Stage,
		Key:      o.Key,
		Location: o.Location,
		Detail:   o.Detail(),
	}

	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	line("status", string(msg.Status))
	line("database", database)
	line("host", o.Host)
	line("run", o.RunID)
	if !o.StartedAt.IsZero() {
		line("started", o.StartedAt.UTC().Format(time.RFC3339))
	}

	if o.Succeeded() {
		msg.Subject = "RDS backup succeeded - " + database
		line("key", o.Key)
		line("location", o.Location)
		line("size", fmt.Sprintf("%.2f MB", o.SizeMB()))
		line("duration", o.Duration.Round(time.Second).String())
		line("dump duration", o.DumpDuration.Round(time.Second).String())
		line("upload attempts", fmt.Sprintf("%d", o.Attempts))
	} else {
		msg.Subject = "RDS backup failed - " + database
		var timeoutErr *domain.TimeoutError
		if errors.As(o.Err, &timeoutErr) {
			msg.Subject = "RDS backup timed out - " + database
		}
		line("stage", string(o.Stage))
		line("key", o.Key)
		if o.Attempts > 0 {
			line("upload attempts", fmt.Sprintf("%d", o.Attempts))
		}
		line("error", msg.Detail)
	}

	if !next.IsZero() {
		line("next run", next.UTC().Format(time.RFC3339))
	}

	msg.Body = b.String()
	return msg
}

// BuildMetrics returns the data points published for an outcome.
func BuildMetrics(o domain.Outcome) []domain.Metric {
	database := o.Database
	if database == "" {
		database = "unknown"
	}

	if !o.Succeeded() {
		dims := []domain.Dimension{{Name: "Database", Value: database}, {Name: "Status", Value: "Failed"}}
		return []domain.Metric{
			{Name: "BackupFailure", Value: 1, Unit: domain.UnitCount, Dimensions: dims},
		}
	}

	dims := []domain.Dimension{{Name: "Database", Value: database}, {Name: "Status", Value: "Success"}}
	return []domain.Metric{
		{Name: "BackupSuccess", Value: 1, Unit: domain.UnitCount, Dimensions: dims},
		{Name: "BackupSize", Value: o.SizeMB(), Unit: domain.UnitMegabytes, Dimensions: dims},
		{Name: "BackupDuration", Value: o.Duration.Seconds(), Unit: domain.UnitSeconds, Dimensions: dims},
		{Name: "DumpDuration", Value: o.DumpDuration.Seconds(), Unit: domain.UnitSeconds, Dimensions: dims},
		{Name: "UploadAttempts", Value: float64(o.Attempts), Unit: domain.UnitCount, Dimensions: dims},
	}
}

func statusOf(o domain.Outcome) domain.Status {
	if o.Succeeded() {
		return domain.StatusSuccess
	}
	return domain.StatusFailure
}
