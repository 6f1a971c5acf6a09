package domain

import "context"

// DumpParams carries everything the dump capability needs for one invocation.
type DumpParams struct {
	Host       string
	Port       int
	Database   string
	Username   string
	Password   string
	SSLMode    string
	OutputPath string
}

// Dumper produces a self-contained dump of a database at params.OutputPath
// and returns the path actually written.
type Dumper interface {
	Dump(ctx context.Context, params DumpParams) (string, error)
}

// Pinger is implemented by dumpers that can check connectivity before dumping.
type Pinger interface {
	Ping(ctx context.Context, params DumpParams) error
}
