// Package guesttest compiles the wasip1 guest so tests can drive it through
// the host.
package guesttest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// EnvModule names a prebuilt guest. When it is set Build does nothing.
const EnvModule = "NCWASI_MODULE"

// Package is the import path of the guest command.
const Package = "github.com/robert-malhotra/go-netcdf/cmd/ncwasi"

// Build compiles the guest into dir and returns the module path. It returns
// an empty path when no go command is on PATH.
func Build(dir string) (string, error) {
	if path := os.Getenv(EnvModule); path != "" {
		return path, nil
	}
	gobin, err := exec.LookPath("go")
	if err != nil {
		return "", nil
	}

	out := filepath.Join(dir, "ncwasi.wasm")
	cmd := exec.Command(gobin, "build", "-buildmode=c-shared", "-o", out, Package)
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm", "CGO_ENABLED=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("building %s: %w\n%s", Package, err, output)
	}
	return out, nil
}

// Main builds the guest into a temporary directory, stores its path in
// *module and runs the tests. It is meant to be called from TestMain.
func Main(run func() int, module *string) int {
	dir, err := os.MkdirTemp("", "ncwasi")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer os.RemoveAll(dir)

	if *module, err = Build(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return run()
}
