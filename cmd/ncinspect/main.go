// Command ncinspect inspects netCDF classic files on disk, over HTTP, in S3
// or in MinIO, and can serve a directory of them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/internal/config"
	"github.com/robert-malhotra/go-netcdf/internal/logging"
)

// env is the state shared by every command, set up by the root Before hook.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	format string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	var (
		configPath string
		logLevel   string
		format     string
		e          = &env{}
	)

	return &cli.Command{
		Name:  "ncinspect",
		Usage: "Inspect netCDF classic files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a YAML config file",
				Sources:     cli.EnvVars("NCVIEW_CONFIG"),
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json, yaml)",
				Value:       "text",
				Destination: &format,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(configPath)
			if err != nil {
				return ctx, err
			}
			if cmd.IsSet("log-level") {
				cfg.LogLevel = logLevel
			}
			switch format {
			case "text", "json", "yaml":
			default:
				return ctx, fmt.Errorf("unknown output format %q", format)
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogLevel == "debug")
			if err != nil {
				return ctx, err
			}
			e.cfg, e.logger, e.format = cfg, logger, format
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			infoCmd(e),
			varsCmd(e),
			dimsCmd(e),
			valuesCmd(e),
			serveCmd(e),
			guestCmd(e),
		},
	}
}
