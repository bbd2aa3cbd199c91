package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-netcdf/internal/httpapi"
	"github.com/robert-malhotra/go-netcdf/internal/logging"
)

func serveCmd(e *env) *cli.Command {
	var (
		addr        string
		root        string
		readTimeout time.Duration
		allow       []string
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve netCDF handles and a file directory over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address", Destination: &addr},
			&cli.StringFlag{Name: "root", Usage: "directory served under /files and opened by path", Destination: &root},
			&cli.DurationFlag{Name: "read-timeout", Usage: "read header timeout", Destination: &readTimeout},
			&cli.StringSliceFlag{Name: "allow-remote", Usage: "URL prefix clients may open remotely (repeatable)", Destination: &allow},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sc := e.cfg.Server
			if cmd.IsSet("addr") {
				sc.Addr = addr
			}
			if cmd.IsSet("root") {
				sc.Root = root
			}
			if cmd.IsSet("read-timeout") {
				sc.ReadTimeout = readTimeout
			}
			if cmd.IsSet("allow-remote") {
				sc.AllowedRemotes = allow
			}

			srv := httpapi.NewServer(httpapi.Config{
				Root:           sc.Root,
				BaseContext:    ctx,
				Logger:         logging.Component(e.logger, "httpapi"),
				FileOptions:    e.fileOptions(ctx),
				AllowedRemotes: sc.AllowedRemotes,
			})
			return srv.Serve(ctx, sc.Addr, sc.ReadTimeout)
		},
	}
}
