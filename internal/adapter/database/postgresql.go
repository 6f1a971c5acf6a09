package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/semmidev/rdsbackup/internal/domain"
)

const (
	defaultDumpPath = "pg_dump"
	waitDelay       = 10 * time.Second
	pingTimeout     = 15 * time.Second
)

// PostgreSQL dumps a database with pg_dump in the custom archive format.
// Credentials are handed to the child process through its environment only.
type PostgreSQL struct {
	dumpPath string
}

func NewPostgreSQL(dumpPath string) *PostgreSQL {
	if dumpPath == "" {
		dumpPath = defaultDumpPath
	}
	return &PostgreSQL{dumpPath: dumpPath}
}

// Args returns the pg_dump arguments for p. The password is never part of them.
func Args(p domain.DumpParams) []string {
	return []string{
		"--host=" + p.Host,
		"--port=" + strconv.Itoa(p.Port),
		"--username=" + p.Username,
		"--dbname=" + p.Database,
		"--format=custom",
		"--no-owner",
		"--no-acl",
		"--verbose",
		"--file=" + p.OutputPath,
	}
}

func (pg *PostgreSQL) Dump(ctx context.Context, p domain.DumpParams) (string, error) {
	cmd := exec.CommandContext(ctx, pg.dumpPath, Args(p)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+p.Password)
	if p.SSLMode != "" {
		cmd.Env = append(cmd.Env, "PGSSLMODE="+p.SSLMode)
	}
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("pg_dump interrupted: %w", ctxErr)
		} else {
			err = fmt.Errorf("pg_dump failed: %w", err)
		}
		return p.OutputPath, &domain.DumpError{
			Database: p.Database,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	return p.OutputPath, nil
}

// Ping opens a short-lived connection and runs SELECT 1 so that bad
// credentials or an unreachable host fail before pg_dump is started.
func (pg *PostgreSQL) Ping(ctx context.Context, p domain.DumpParams) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, DSN(p))
	if err != nil {
		return fmt.Errorf("postgresql connect failed: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	return nil
}

// DSN builds a connection URL for p.
func DSN(p domain.DumpParams) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}
