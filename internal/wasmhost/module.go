package wasmhost

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/boundary"
)

// Config configures a Module.
type Config struct {
	// Dir is mounted at "/" in the guest; paths given to Open are resolved
	// inside it. Empty means the guest sees no filesystem.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// Module is an instantiated ncwasi guest.
type Module struct {
	mu     sync.Mutex
	rt     wazero.Runtime
	mod    api.Module
	fns    map[string]api.Function
	logger *zap.Logger
}

func requiredExports() []string {
	names := []string{
		"malloc", "free", "free_string", "open_file", "close_file",
		"get_title", "get_string_attribute", "get_variables", "get_dimensions",
		"get_variable_dimensions", "get_variable_type",
		"get_variable_string_attribute", "get_dimension_len", "drop_bytes",
	}
	for _, e := range boundary.ElemTypes {
		names = append(names, valueExport(e), valuesExport(e))
	}
	return names
}

func valueExport(e boundary.ElemType) string  { return "get_" + e.String() + "_value_for" }
func valuesExport(e boundary.ElemType) string { return "get_" + e.String() + "_values_for" }

// LoadFile reads a compiled guest from path and instantiates it.
func LoadFile(ctx context.Context, path string, cfg Config) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", path, err)
	}
	return Load(ctx, wasm, cfg)
}

// Load compiles and instantiates a guest, running its reactor initializer.
func Load(ctx context.Context, wasm []byte, cfg Config) (*Module, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "wasmhost"))

	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating wasi: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compiling module: %w", err)
	}

	mc := wazero.NewModuleConfig().
		WithName("ncwasi").
		WithStartFunctions("_initialize").
		WithSysWalltime().
		WithSysNanotime()
	if cfg.Dir != "" {
		mc = mc.WithFSConfig(wazero.NewFSConfig().WithDirMount(cfg.Dir, "/"))
	}
	if cfg.Stdout != nil {
		mc = mc.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		mc = mc.WithStderr(cfg.Stderr)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, mc)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating module: %w", err)
	}

	m := &Module{rt: rt, mod: mod, fns: make(map[string]api.Function), logger: logger}
	for _, name := range requiredExports() {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
		m.fns[name] = fn
	}
	logger.Debug("module instantiated", zap.Int("exports", len(m.fns)))
	return m, nil
}

// Close tears down the runtime and every guest allocation with it.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rt.Close(ctx)
}

func (m *Module) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	res, err := m.fns[name].Call(ctx, params...)
	if err != nil {
		return 0, &CallError{Export: name, Err: err}
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

// alloc copies data into guest memory.
func (m *Module) alloc(ctx context.Context, data []byte) (uint32, error) {
	size := max(len(data), 1)
	res, err := m.call(ctx, "malloc", uint64(size))
	if err != nil {
		return 0, err
	}
	p := uint32(res)
	if p == 0 {
		return 0, ErrGuestAlloc
	}
	if !m.mod.Memory().Write(p, data) {
		return 0, ErrOutOfBounds
	}
	return p, nil
}

func (m *Module) free(ctx context.Context, ptrs ...uint32) {
	for _, p := range ptrs {
		if p == 0 {
			continue
		}
		if _, err := m.call(ctx, "free", uint64(p)); err != nil {
			m.logger.Warn("freeing guest memory", zap.Uint32("ptr", p), zap.Error(err))
		}
	}
}

func (m *Module) writeString(ctx context.Context, s string) (uint32, error) {
	return m.alloc(ctx, append([]byte(s), 0))
}

// writeIndices copies an index array as little-endian int32. An empty array
// is passed as a null pointer.
func (m *Module) writeIndices(ctx context.Context, idx []int) (uint32, uint32, error) {
	if len(idx) == 0 {
		return 0, 0, nil
	}
	buf := make([]byte, 4*len(idx))
	for i, v := range idx {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v)))
	}
	p, err := m.alloc(ctx, buf)
	return p, uint32(len(idx)), err
}

// callString calls a string-returning export with string arguments and
// releases the result.
func (m *Module) callString(ctx context.Context, name string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params := make([]uint64, len(args))
	ptrs := make([]uint32, 0, len(args))
	defer func() { m.free(ctx, ptrs...) }()
	for i, a := range args {
		p, err := m.writeString(ctx, a)
		if err != nil {
			return "", err
		}
		ptrs = append(ptrs, p)
		params[i] = uint64(p)
	}

	res, err := m.call(ctx, name, params...)
	if err != nil {
		return "", err
	}
	p := uint32(res)
	if p == 0 {
		return "", ErrGuestAlloc
	}
	s, readErr := readString(m.mod.Memory(), p)
	if _, err := m.call(ctx, "free_string", uint64(p)); err != nil {
		return "", errors.Join(readErr, err)
	}
	return s, readErr
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Open opens path inside the mounted directory.
func (m *Module) Open(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.writeString(ctx, path)
	if err != nil {
		return false, err
	}
	defer m.free(ctx, p)

	res, err := m.call(ctx, "open_file", uint64(p))
	if err != nil {
		return false, err
	}
	ok := uint32(res) != 0
	m.logger.Debug("open_file", zap.String("path", path), zap.Bool("ok", ok))
	return ok, nil
}

// CloseFile empties the guest session.
func (m *Module) CloseFile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.call(ctx, "close_file")
	return err
}

func (m *Module) Title(ctx context.Context) (string, error) {
	return m.callString(ctx, "get_title")
}

func (m *Module) StringAttribute(ctx context.Context, name string) (string, error) {
	return m.callString(ctx, "get_string_attribute", name)
}

func (m *Module) Variables(ctx context.Context) ([]string, error) {
	s, err := m.callString(ctx, "get_variables")
	return splitList(s), err
}

func (m *Module) Dimensions(ctx context.Context) ([]string, error) {
	s, err := m.callString(ctx, "get_dimensions")
	return splitList(s), err
}

func (m *Module) VariableDimensions(ctx context.Context, name string) ([]string, error) {
	s, err := m.callString(ctx, "get_variable_dimensions", name)
	return splitList(s), err
}

// VariableType returns the element type the guest reads name as natively.
// It reports false when the variable does not exist.
func (m *Module) VariableType(ctx context.Context, name string) (boundary.ElemType, bool, error) {
	s, err := m.callString(ctx, "get_variable_type", name)
	if err != nil {
		return 0, false, err
	}
	e, ok := boundary.ParseElemType(s)
	return e, ok, nil
}

func (m *Module) VariableStringAttribute(ctx context.Context, variable, name string) (string, error) {
	return m.callString(ctx, "get_variable_string_attribute", variable, name)
}

func (m *Module) DimensionLength(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.writeString(ctx, name)
	if err != nil {
		return 0, err
	}
	defer m.free(ctx, p)

	res, err := m.call(ctx, "get_dimension_len", uint64(p))
	return int(uint32(res)), err
}

// Value reads one element as elem. Guest failures read as zero.
func (m *Module) Value(ctx context.Context, elem boundary.ElemType, name string, index []int) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	np, err := m.writeString(ctx, name)
	if err != nil {
		return nil, err
	}
	ip, n, err := m.writeIndices(ctx, index)
	defer m.free(ctx, np, ip)
	if err != nil {
		return nil, err
	}

	res, err := m.call(ctx, valueExport(elem), uint64(np), uint64(ip), uint64(n))
	if err != nil {
		return nil, err
	}
	return decodeScalar(elem, res), nil
}

// Values reads the window [start, end) as elem and returns a slice of the
// Go type elem names. The guest buffer is dropped before returning.
func (m *Module) Values(ctx context.Context, elem boundary.ElemType, name string, start, end []int) (out any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	np, err := m.writeString(ctx, name)
	if err != nil {
		return nil, err
	}
	sp, sn, err := m.writeIndices(ctx, start)
	if err != nil {
		m.free(ctx, np)
		return nil, err
	}
	ep, en, err := m.writeIndices(ctx, end)
	defer m.free(ctx, np, sp, ep)
	if err != nil {
		return nil, err
	}

	res, err := m.call(ctx, valuesExport(elem), uint64(np), uint64(sp), uint64(sn), uint64(ep), uint64(en))
	if err != nil {
		return nil, err
	}
	desc := uint32(res)
	if desc == 0 {
		return nil, ErrNoResult
	}
	defer func() {
		dropped, dropErr := m.call(ctx, "drop_bytes", uint64(desc))
		switch {
		case dropErr != nil:
			err = errors.Join(err, dropErr)
		case uint32(dropped) == 0:
			err = errors.Join(err, fmt.Errorf("wasmhost: guest refused to drop descriptor 0x%x", desc))
		}
		if err != nil {
			out = nil
		}
	}()

	mem := m.mod.Memory()
	d, err := readDescriptor(mem, desc)
	if err != nil {
		return nil, err
	}
	raw, ok := mem.Read(d.ptr, d.len*uint32(elem.Size()))
	if !ok {
		return nil, ErrOutOfBounds
	}
	return decodeValues(elem, raw, int(d.len)), nil
}
