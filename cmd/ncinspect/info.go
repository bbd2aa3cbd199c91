package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// summary describes one file.
type summary struct {
	Source     string                 `json:"source" yaml:"source"`
	Format     string                 `json:"format" yaml:"format"`
	Title      string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Records    uint64                 `json:"records" yaml:"records"`
	MapSize    int64                  `json:"map_size" yaml:"map_size"`
	Dimensions []netcdf.DimensionInfo `json:"dimensions" yaml:"dimensions"`
	Variables  []netcdf.VariableInfo  `json:"variables" yaml:"variables"`
}

func formatName(version int) string {
	if version == 2 {
		return "64-bit offset"
	}
	return "classic"
}

func (e *env) summarize(ctx context.Context, src string) (summary, error) {
	f, err := e.open(ctx, src)
	if err != nil {
		return summary{}, fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	h := f.Header()
	s := summary{
		Source:     src,
		Format:     formatName(h.Version),
		Records:    h.NumRecs,
		Dimensions: f.Dimensions(),
	}
	s.Title, _ = f.Attribute("title")
	// A file without variables is still worth describing.
	if s.Variables, err = f.Variables(); err != nil && !isKind(err, netcdf.KindNoVariables) {
		return summary{}, fmt.Errorf("listing variables of %s: %w", src, err)
	}
	if s.MapSize, err = f.MapSize(); err != nil && !isKind(err, netcdf.KindNoVariables) {
		return summary{}, fmt.Errorf("sizing %s: %w", src, err)
	}
	return s, nil
}

func isKind(err error, kind netcdf.ErrorKind) bool {
	return netcdfKind(err) == kind
}

func infoCmd(e *env) *cli.Command {
	var parallel int

	return &cli.Command{
		Name:      "info",
		Usage:     "Summarize one or more files",
		ArgsUsage: "SOURCE...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "parallel",
				Aliases:     []string{"p"},
				Usage:       "number of sources opened at once",
				Value:       4,
				Destination: &parallel,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sources := cmd.Args().Slice()
			if len(sources) == 0 {
				return fmt.Errorf("info: at least one source is required")
			}

			summaries := make([]summary, len(sources))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(parallel, 1))
			for i, src := range sources {
				g.Go(func() error {
					s, err := e.summarize(gctx, src)
					if err != nil {
						return err
					}
					summaries[i] = s
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			var out any = summaries
			if len(summaries) == 1 {
				out = summaries[0]
			}
			return render(cmd.Root().Writer, e.format, out, func(w io.Writer) error {
				for i, s := range summaries {
					if i > 0 {
						fmt.Fprintln(w)
					}
					writeSummary(w, s)
				}
				return nil
			})
		},
	}
}

func writeSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "=== %s ===\n", s.Source)
	fmt.Fprintf(w, "Format:   %s\n", s.Format)
	if s.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", s.Title)
	}
	fmt.Fprintf(w, "Records:  %d\n", s.Records)
	fmt.Fprintf(w, "Map size: %d bytes\n", s.MapSize)
	fmt.Fprintf(w, "Dimensions:\n")
	writeDimensions(w, s.Dimensions, "  ")
	fmt.Fprintf(w, "Variables:\n")
	writeVariables(w, s.Variables, "  ")
}
