package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/semmidev/rdsbackup/internal/domain"
)

type fakeLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *fakeLogger) record(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *fakeLogger) Infof(template string, args ...interface{})  { l.record("INFO", template, args...) }
func (l *fakeLogger) Errorf(template string, args ...interface{}) { l.record("ERROR", template, args...) }
func (l *fakeLogger) Warnf(template string, args ...interface{})  { l.record("WARN", template, args...) }

// fakeDumper writes size bytes to the requested path, optionally failing
// after writing, or blocks until the context is done.
type fakeDumper struct {
	size    int
	err     error
	block   bool
	pingErr error

	calls  int
	pings  int
	params domain.DumpParams
}

func (d *fakeDumper) Dump(ctx context.Context, params domain.DumpParams) (string, error) {
	d.calls++
	d.params = params

	if d.block {
		<-ctx.Done()
		return params.OutputPath, ctx.Err()
	}

	if err := os.WriteFile(params.OutputPath, make([]byte, d.size), 0o600); err != nil {
		return "", err
	}
	return params.OutputPath, d.err
}

type pingingDumper struct {
	*fakeDumper
}

func (d pingingDumper) Ping(ctx context.Context, params domain.DumpParams) error {
	d.pings++
	return d.pingErr
}

type fakeStorage struct {
	errs  []error
	calls int
	keys  []string
	paths []string
}

func (s *fakeStorage) Upload(ctx context.Context, localPath string, key string) error {
	s.calls++
	s.keys = append(s.keys, key)
	s.paths = append(s.paths, localPath)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(s.errs) >= s.calls {
		return s.errs[s.calls-1]
	}
	return nil
}

func (s *fakeStorage) Location(key string) string { return "s3://ops-data/" + key }

func (s *fakeStorage) Name() string { return "s3" }

type fakeNotifier struct {
	name     string
	err      error
	messages []domain.Message
	deadline bool
}

func (n *fakeNotifier) Publish(ctx context.Context, msg domain.Message) error {
	_, n.deadline = ctx.Deadline()
	n.messages = append(n.messages, msg)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return n.err
}

func (n *fakeNotifier) Name() string { return n.name }

type fakeMetrics struct {
	err     error
	batches [][]domain.Metric
}

func (m *fakeMetrics) Put(ctx context.Context, metrics []domain.Metric) error {
	m.batches = append(m.batches, metrics)
	return m.err
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// steppingClock returns start on the first call and advances by step on
// every call after that.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
