package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketPulse/internal/config"

	"github.com/urfave/cli/v3"
)

// Exit codes.
const (
	exitConfig = 1
	exitRun    = 2
)

func main() {
	cmd := &cli.Command{
		Name:  "marketpulse",
		Usage: "Daily technical indicators, alerts and market snapshot for a list of symbols",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "symbols",
				Usage: "Comma separated symbols, overriding the config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Process every symbol once and write the outputs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "serve",
				Usage:  "Run on the daily schedule with Telegram commands and a metrics endpoint",
				Action: serveAction,
			},
			{
				Name:  "fetch",
				Usage: "Download daily history from Yahoo Finance into the data directory",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Calendar days of history (defaults to data_source.history_days)",
					},
				},
				Action: fetchAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "marketpulse:", err)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(exitConfig)
		}
		os.Exit(exitRun)
	}
}
