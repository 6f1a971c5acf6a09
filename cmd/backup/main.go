package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/semmidev/rdsbackup/internal/app"
	"github.com/semmidev/rdsbackup/internal/config"
	"github.com/semmidev/rdsbackup/internal/domain"
	"github.com/semmidev/rdsbackup/internal/infrastructure/logger"
)

func main() {
	code := domain.ExitOK

	cliApp := &cli.App{
		Name:  "rds-backup",
		Usage: "Dump an RDS PostgreSQL database and upload it to object storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "optional YAML or dotenv file; environment variables take precedence",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{config.KeyLogLevel},
			},
			&cli.StringFlag{
				Name:    "log-file",
				EnvVars: []string{config.KeyLogFile},
			},
		},
		Action: func(c *cli.Context) error {
			code = run(c)
			return nil
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(domain.ExitInternal)
	}
	os.Exit(code)
}

func run(c *cli.Context) int {
	log, err := logger.New(c.String("log-level"), c.String("log-file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: initialize logger: %v\n", err)
		return domain.ExitInternal
	}
	defer log.Close()

	source, err := config.NewSource(c.String("config"))
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outcome := app.New(source, log, app.WithLoadError(err)).Run(ctx)
	return domain.ExitCode(outcome)
}
