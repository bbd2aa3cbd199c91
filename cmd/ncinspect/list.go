package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// netcdfKind returns the kind of a netcdf error, or -1.
func netcdfKind(err error) netcdf.ErrorKind {
	var ncErr *netcdf.Error
	if errors.As(err, &ncErr) {
		return ncErr.Kind
	}
	return -1
}

func oneSource(cmd *cli.Command) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("%s: exactly one source is required", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func varsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "vars",
		Usage:     "List the variables of a file",
		ArgsUsage: "SOURCE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := oneSource(cmd)
			if err != nil {
				return err
			}
			f, err := e.open(ctx, src)
			if err != nil {
				return err
			}
			defer f.Close()

			vars, err := f.Variables()
			if err != nil {
				return err
			}
			return render(cmd.Root().Writer, e.format, vars, func(w io.Writer) error {
				writeVariables(w, vars, "")
				return nil
			})
		},
	}
}

func dimsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "dims",
		Usage:     "List the dimensions of a file",
		ArgsUsage: "SOURCE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := oneSource(cmd)
			if err != nil {
				return err
			}
			f, err := e.open(ctx, src)
			if err != nil {
				return err
			}
			defer f.Close()

			dims := f.Dimensions()
			return render(cmd.Root().Writer, e.format, dims, func(w io.Writer) error {
				writeDimensions(w, dims, "")
				return nil
			})
		},
	}
}

func writeDimensions(w io.Writer, dims []netcdf.DimensionInfo, indent string) {
	for _, d := range dims {
		fmt.Fprintf(w, "%s%s = %d\n", indent, d.Name, d.Length)
	}
}

func writeVariables(w io.Writer, vars []netcdf.VariableInfo, indent string) {
	for _, v := range vars {
		fmt.Fprintf(w, "%s%s %s(%s) length=%d\n", indent, dtype.Type(v.Kind), v.Name,
			strings.Join(v.Dimensions, ", "), v.Length)

		names := make([]string, 0, len(v.Attributes))
		for name := range v.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s  :%s = %q\n", indent, name, v.Attributes[name])
		}
	}
}
