package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-netcdf/internal/logging"
	"github.com/robert-malhotra/go-netcdf/internal/wasmhost"
)

// guestVariable is what the native ABI can say about a variable.
type guestVariable struct {
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Dimensions []string `json:"dimensions" yaml:"dimensions"`
	Units      string   `json:"units,omitempty" yaml:"units,omitempty"`
	Values     []any    `json:"values,omitempty" yaml:"values,omitempty"`
}

type guestDimension struct {
	Name   string `json:"name" yaml:"name"`
	Length int    `json:"length" yaml:"length"`
}

// guestSummary is a file described through the wasip1 library.
type guestSummary struct {
	Source     string           `json:"source" yaml:"source"`
	Title      string           `json:"title,omitempty" yaml:"title,omitempty"`
	Dimensions []guestDimension `json:"dimensions" yaml:"dimensions"`
	Variables  []guestVariable  `json:"variables" yaml:"variables"`
}

var errGuestOpen = errors.New("guest could not open file")

// describeGuest opens name inside the guest's mounted directory and reads
// everything the native getters expose. Variables listed in values also get
// their full contents.
func describeGuest(ctx context.Context, m *wasmhost.Module, name string, values map[string]bool) (guestSummary, error) {
	ok, err := m.Open(ctx, "/"+name)
	if err != nil {
		return guestSummary{}, err
	}
	if !ok {
		return guestSummary{}, fmt.Errorf("%w: %s", errGuestOpen, name)
	}
	defer m.CloseFile(ctx)

	s := guestSummary{Source: name}
	if s.Title, err = m.Title(ctx); err != nil {
		return s, err
	}

	dims, err := m.Dimensions(ctx)
	if err != nil {
		return s, err
	}
	for _, d := range dims {
		n, err := m.DimensionLength(ctx, d)
		if err != nil {
			return s, err
		}
		s.Dimensions = append(s.Dimensions, guestDimension{Name: d, Length: n})
	}

	vars, err := m.Variables(ctx)
	if err != nil {
		return s, err
	}
	for _, name := range vars {
		v := guestVariable{Name: name}
		elem, known, err := m.VariableType(ctx, name)
		if err != nil {
			return s, err
		}
		if known {
			v.Type = elem.String()
		}
		if v.Dimensions, err = m.VariableDimensions(ctx, name); err != nil {
			return s, err
		}
		if v.Units, err = m.VariableStringAttribute(ctx, name, "units"); err != nil {
			return s, err
		}
		if known && values[name] {
			raw, err := m.Values(ctx, elem, name, nil, nil)
			if err != nil {
				return s, fmt.Errorf("reading %s: %w", name, err)
			}
			v.Values = flatten(raw)
		}
		s.Variables = append(s.Variables, v)
	}
	return s, nil
}

func guestCmd(e *env) *cli.Command {
	var (
		module string
		values []string
	)

	return &cli.Command{
		Name:      "guest",
		Usage:     "Describe a local file through the wasip1 build of the native library",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "module", Usage: "path to ncwasi.wasm (default guest.module)", Destination: &module},
			&cli.StringSliceFlag{Name: "values", Usage: "variable whose values are read (repeatable)", Destination: &values},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := oneSource(cmd)
			if err != nil {
				return err
			}
			if !cmd.IsSet("module") {
				module = e.cfg.Guest.Module
			}
			if module == "" {
				return fmt.Errorf("guest: no module given and guest.module is not configured")
			}
			abs, err := filepath.Abs(src)
			if err != nil {
				return err
			}

			m, err := wasmhost.LoadFile(ctx, module, wasmhost.Config{
				Dir:    filepath.Dir(abs),
				Stderr: os.Stderr,
				Logger: logging.Component(e.logger, "wasmhost"),
			})
			if err != nil {
				return err
			}
			defer m.Close(ctx)

			want := make(map[string]bool, len(values))
			for _, v := range values {
				want[v] = true
			}
			s, err := describeGuest(ctx, m, filepath.Base(abs), want)
			if err != nil {
				return err
			}
			return render(cmd.Root().Writer, e.format, s, func(w io.Writer) error {
				writeGuestSummary(w, s)
				return nil
			})
		},
	}
}

func writeGuestSummary(w io.Writer, s guestSummary) {
	fmt.Fprintf(w, "=== %s (wasip1) ===\n", s.Source)
	if s.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", s.Title)
	}
	fmt.Fprintf(w, "Dimensions:\n")
	for _, d := range s.Dimensions {
		fmt.Fprintf(w, "  %s = %d\n", d.Name, d.Length)
	}
	fmt.Fprintf(w, "Variables:\n")
	for _, v := range s.Variables {
		fmt.Fprintf(w, "  %s %s(%s)", v.Type, v.Name, strings.Join(v.Dimensions, ", "))
		if v.Units != "" {
			fmt.Fprintf(w, " units=%q", v.Units)
		}
		fmt.Fprintln(w)
		if len(v.Values) > 0 {
			fmt.Fprintf(w, "    %v\n", v.Values)
		}
	}
}
