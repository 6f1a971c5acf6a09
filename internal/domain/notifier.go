package domain

import "context"

// Message is the notification published once per run.
type Message struct {
	RunID    string
	Status   Status
	Database string
	Stage    Stage
	Key      string
	Location string
	Detail   string

	Subject string
	Body    string
}

type Notifier interface {
	Publish(ctx context.Context, msg Message) error
	Name() string
}
