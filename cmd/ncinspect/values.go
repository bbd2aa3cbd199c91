package main

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-netcdf/boundary"
)

// valuesResult is the structured form of a values read.
type valuesResult struct {
	Variable string `json:"variable" yaml:"variable"`
	Type     string `json:"type" yaml:"type"`
	Start    []int  `json:"start,omitempty" yaml:"start,omitempty"`
	End      []int  `json:"end,omitempty" yaml:"end,omitempty"`
	Shape    []int  `json:"shape" yaml:"shape"`
	Values   []any  `json:"values" yaml:"values"`
}

// parseIndex parses "1,0,2". An empty string yields nil.
func parseIndex(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing index %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

// windowShape returns the extent of [start, end) within shape.
func windowShape(shape, start, end []int) []int {
	out := make([]int, len(shape))
	for i := range shape {
		lo, hi := 0, shape[i]
		if i < len(start) {
			lo = start[i]
		}
		if i < len(end) {
			hi = end[i]
		}
		out[i] = max(hi-lo, 0)
	}
	return out
}

// flatten copies a typed slice into []any.
func flatten(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func valuesCmd(e *env) *cli.Command {
	var (
		start    string
		end      string
		elemName string
	)

	return &cli.Command{
		Name:      "values",
		Usage:     "Print the values of a variable in a window",
		ArgsUsage: "SOURCE VARIABLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "first index, comma separated (default origin)", Destination: &start},
			&cli.StringFlag{Name: "end", Usage: "exclusive end index, comma separated (default full shape)", Destination: &end},
			&cli.StringFlag{Name: "type", Usage: "element type (i8, i16, i32, u8, u16, u32, f32, f64)", Destination: &elemName},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("values: SOURCE and VARIABLE are required")
			}
			src, name := cmd.Args().Get(0), cmd.Args().Get(1)

			startIdx, err := parseIndex(start)
			if err != nil {
				return err
			}
			endIdx, err := parseIndex(end)
			if err != nil {
				return err
			}

			f, err := e.open(ctx, src)
			if err != nil {
				return err
			}
			defer f.Close()

			var elem boundary.ElemType
			if elemName != "" {
				var ok bool
				if elem, ok = boundary.ParseElemType(elemName); !ok {
					return fmt.Errorf("values: unknown element type %q", elemName)
				}
			} else if elem, err = boundary.NativeElemType(f, name); err != nil {
				return err
			}

			shape, err := f.VariableShape(name)
			if err != nil {
				return err
			}
			raw, err := boundary.ReadValues(f, name, elem, startIdx, endIdx)
			if err != nil {
				return err
			}

			res := valuesResult{
				Variable: name,
				Type:     elem.String(),
				Start:    startIdx,
				End:      endIdx,
				Shape:    windowShape(shape, startIdx, endIdx),
				Values:   flatten(raw),
			}
			if e.format == "json" {
				for i, v := range res.Values {
					res.Values[i] = boundary.JSONValue(v)
				}
			}
			return render(cmd.Root().Writer, e.format, res, func(w io.Writer) error {
				return writeValues(w, res)
			})
		},
	}
}

// writeValues prints one line per row of the innermost dimension.
func writeValues(w io.Writer, res valuesResult) error {
	fmt.Fprintf(w, "%s %s %v\n", res.Type, res.Variable, res.Shape)
	row := 1
	if n := len(res.Shape); n > 0 && res.Shape[n-1] > 0 {
		row = res.Shape[n-1]
	}
	for i := 0; i < len(res.Values); i += row {
		line := res.Values[i:min(i+row, len(res.Values))]
		parts := make([]string, len(line))
		for j, v := range line {
			parts[j] = fmt.Sprint(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
