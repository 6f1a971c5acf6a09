package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/rdsbackup/internal/domain"
	"github.com/semmidev/rdsbackup/internal/infrastructure/scheduler"
)

func successOutcome() domain.Outcome {
	return domain.Outcome{
		RunID:        "run1",
		Status:       domain.StatusSuccess,
		Database:     "mydb",
		Host:         "db.example.internal",
		StartedAt:    time.Date(2024, 3, 14, 2, 30, 5, 0, time.UTC),
		Duration:     75 * time.Second,
		DumpDuration: 50 * time.Second,
		Key:          "backups/2024/03/14/backup-mydb-2024-03-14-023005.dump",
		Location:     "s3://ops-data/backups/2024/03/14/backup-mydb-2024-03-14-023005.dump",
		Size:         12 * 1024 * 1024,
		Attempts:     3,
	}
}

func TestBuildMessage(t *testing.T) {
	Convey("Given an outcome", t, func() {
		Convey("When the run succeeded", func() {
			msg := BuildMessage(successOutcome(), time.Time{})

			Convey("It should carry status, database, key, size and duration", func() {
				So(msg.Status, ShouldEqual, domain.StatusSuccess)
				So(msg.Subject, ShouldEqual, "RDS backup succeeded - mydb")
				So(msg.Key, ShouldEqual, "backups/2024/03/14/backup-mydb-2024-03-14-023005.dump")
				So(msg.Body, ShouldContainSubstring, "status: success\n")
				So(msg.Body, ShouldContainSubstring, "database: mydb\n")
				So(msg.Body, ShouldContainSubstring, "key: backups/2024/03/14/backup-mydb-2024-03-14-023005.dump\n")
				So(msg.Body, ShouldContainSubstring, "size: 12.00 MB\n")
				So(msg.Body, ShouldContainSubstring, "\nduration: 1m15s\n")
				So(msg.Body, ShouldContainSubstring, "dump duration: 50s\n")
				So(msg.Body, ShouldContainSubstring, "upload attempts: 3\n")
				So(msg.Body, ShouldNotContainSubstring, "next run")
			})
		})

		Convey("When the run failed at the dump stage", func() {
			outcome := domain.Outcome{
				Status:   domain.StatusFailure,
				Database: "mydb",
				Stage:    domain.StageDump,
				Err:      &domain.DumpError{Database: "mydb", Stderr: "connection refused"},
			}
			msg := BuildMessage(outcome, time.Time{})

			Convey("It should carry stage and error detail", func() {
				So(msg.Status, ShouldEqual, domain.StatusFailure)
				So(msg.Stage, ShouldEqual, domain.StageDump)
				So(msg.Subject, ShouldEqual, "RDS backup failed - mydb")
				So(msg.Body, ShouldContainSubstring, "status: failure\n")
				So(msg.Body, ShouldContainSubstring, "stage: dump\n")
				So(msg.Detail, ShouldContainSubstring, "connection refused")
				So(msg.Body, ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When the run timed out", func() {
			outcome := domain.Outcome{
				Status:   domain.StatusFailure,
				Database: "mydb",
				Stage:    domain.StageUpload,
				Err:      &domain.TimeoutError{Stage: domain.StageUpload, Timeout: time.Hour},
			}
			msg := BuildMessage(outcome, time.Time{})

			So(msg.Subject, ShouldEqual, "RDS backup timed out - mydb")
			So(msg.Body, ShouldContainSubstring, "timed out")
		})

		Convey("When configuration failed before the database was known", func() {
			outcome := domain.Outcome{
				Status: domain.StatusFailure,
				Stage:  domain.StageConfiguration,
				Err:    &domain.ConfigurationError{Missing: []string{"RDS_DB_NAME"}},
			}
			msg := BuildMessage(outcome, time.Time{})

			So(msg.Database, ShouldEqual, "unknown")
			So(msg.Body, ShouldContainSubstring, "stage: configuration\n")
			So(msg.Body, ShouldContainSubstring, "RDS_DB_NAME")
		})

		Convey("When a next run is known", func() {
			next := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
			msg := BuildMessage(successOutcome(), next)

			So(msg.Body, ShouldContainSubstring, "next run: 2024-03-15T03:00:00Z\n")
		})
	})
}

func TestBuildMetrics(t *testing.T) {
	Convey("Given an outcome", t, func() {
		Convey("When the run succeeded", func() {
			metrics := BuildMetrics(successOutcome())

			So(len(metrics), ShouldEqual, 5)
			So(metrics[0].Name, ShouldEqual, "BackupSuccess")
			So(metrics[1].Name, ShouldEqual, "BackupSize")
			So(metrics[1].Value, ShouldAlmostEqual, 12.0)
			So(metrics[1].Unit, ShouldEqual, domain.UnitMegabytes)
			So(metrics[2].Value, ShouldAlmostEqual, 75.0)
			So(metrics[3].Name, ShouldEqual, "DumpDuration")
			So(metrics[3].Value, ShouldAlmostEqual, 50.0)
			So(metrics[3].Unit, ShouldEqual, domain.UnitSeconds)
			So(metrics[4].Name, ShouldEqual, "UploadAttempts")
			So(metrics[4].Value, ShouldAlmostEqual, 3.0)
			So(metrics[0].Dimensions, ShouldResemble, []domain.Dimension{{Name: "Database", Value: "mydb"}, {Name: "Status", Value: "Success"}})
		})

		Convey("When the run failed", func() {
			metrics := BuildMetrics(domain.Outcome{Status: domain.StatusFailure, Stage: domain.StageDump})

			So(len(metrics), ShouldEqual, 1)
			So(metrics[0].Name, ShouldEqual, "BackupFailure")
			So(metrics[0].Dimensions, ShouldResemble, []domain.Dimension{{Name: "Database", Value: "unknown"}, {Name: "Status", Value: "Failed"}})
		})
	})
}

func TestReporter(t *testing.T) {
	Convey("Given a Reporter", t, func() {
		logger := &fakeLogger{}

		Convey("When channels and metrics are configured", func() {
			sns := &fakeNotifier{name: "sns"}
			telegram := &fakeNotifier{name: "telegram"}
			metrics := &fakeMetrics{}
			schedule, err := scheduler.Parse("0 3 * * *")
			So(err, ShouldBeNil)

			err = NewReporter([]domain.Notifier{sns, telegram}, metrics, schedule, logger).Report(context.Background(), successOutcome())

			Convey("It should publish once per channel and emit metrics", func() {
				So(err, ShouldBeNil)
				So(len(sns.messages), ShouldEqual, 1)
				So(len(telegram.messages), ShouldEqual, 1)
				So(len(metrics.batches), ShouldEqual, 1)
				So(sns.messages[0].Body, ShouldContainSubstring, "next run: 2024-03-14T03:00:00Z")
			})
		})

		Convey("When the run context has already expired", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			sns := &fakeNotifier{name: "sns"}

			err := NewReporter([]domain.Notifier{sns}, nil, nil, logger).Report(ctx, successOutcome())

			Convey("It should still publish on its own deadline", func() {
				So(err, ShouldBeNil)
				So(len(sns.messages), ShouldEqual, 1)
				So(sns.deadline, ShouldBeTrue)
			})
		})

		Convey("When a channel fails", func() {
			broken := &fakeNotifier{name: "sns", err: errors.New("AuthorizationError")}
			healthy := &fakeNotifier{name: "telegram"}
			metrics := &fakeMetrics{err: errors.New("throttled")}

			err := NewReporter([]domain.Notifier{broken, healthy}, metrics, nil, logger).Report(context.Background(), successOutcome())

			Convey("It should report a NotificationError and keep going", func() {
				var notifyErr *domain.NotificationError
				So(errors.As(err, &notifyErr), ShouldBeTrue)
				So(notifyErr.Channel, ShouldEqual, "sns")
				So(len(healthy.messages), ShouldEqual, 1)
			})
		})

		Convey("When no channel is configured", func() {
			err := NewReporter(nil, nil, nil, logger).Report(context.Background(), successOutcome())

			Convey("It should be a no-op", func() {
				So(err, ShouldBeNil)
				So(logger.lines[len(logger.lines)-1], ShouldContainSubstring, "No notification channel configured")
			})
		})
	})
}
