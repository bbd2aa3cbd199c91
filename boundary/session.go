package boundary

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// Opener opens the file named by a session path.
type Opener func(path string) (*netcdf.File, error)

// DefaultOpener opens http and https URLs with range requests and anything
// else as a local path.
func DefaultOpener(opts ...netcdf.Option) Opener {
	return func(path string) (*netcdf.File, error) {
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			return netcdf.OpenRemote(context.Background(), path, 0, opts...)
		}
		return netcdf.OpenFile(path, opts...)
	}
}

// Session holds at most one open file behind a mutex. Every method takes the
// lock for its whole duration and releases it on return, including when the
// operation panics. Failures are reported as "", 0 or false.
type Session struct {
	slot   slot
	reg    *Registry
	open   Opener
	logger *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOpener replaces DefaultOpener.
func WithOpener(o Opener) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.open = o
		}
	}
}

// WithSessionLogger sets the logger used to record failures that the ABI
// cannot report.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession returns an empty session exporting buffers through reg.
func NewSession(reg *Registry, opts ...SessionOption) *Session {
	if reg == nil {
		reg = NewRegistry(nil)
	}
	s := &Session{
		reg:    reg,
		open:   DefaultOpener(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry range results are exported through.
func (s *Session) Registry() *Registry {
	return s.reg
}

// Open replaces the slot with a freshly opened file. On failure the slot is
// left empty.
func (s *Session) Open(path string) bool {
	ok := false
	s.slot.with(func(f **netcdf.File) {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
		file, err := s.open(path)
		if err != nil {
			s.logger.Debug("open failed", zap.String("path", path), zap.Error(err))
			return
		}
		*f = file
		ok = true
	})
	return ok
}

// Close empties the slot. It is a no-op when nothing is open.
func (s *Session) Close() {
	s.slot.with(func(f **netcdf.File) {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	})
}

// IsOpen reports whether the slot holds a file.
func (s *Session) IsOpen() bool {
	open := false
	s.slot.with(func(f **netcdf.File) { open = *f != nil })
	return open
}

// withFile runs fn on the open file. It reports false when the slot is empty.
func (s *Session) withFile(fn func(f *netcdf.File)) bool {
	found := false
	s.slot.with(func(f **netcdf.File) {
		if *f == nil {
			return
		}
		found = true
		fn(*f)
	})
	return found
}

// Title returns the global "title" attribute.
func (s *Session) Title() string {
	return s.StringAttribute("title")
}

// StringAttribute returns a global char attribute.
func (s *Session) StringAttribute(name string) string {
	var out string
	s.withFile(func(f *netcdf.File) {
		out, _ = f.Attribute(name)
	})
	return out
}

// Variables returns the variable names joined by commas.
func (s *Session) Variables() string {
	var out string
	s.withFile(func(f *netcdf.File) {
		vars, err := f.Variables()
		if err != nil {
			return
		}
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		out = strings.Join(names, ",")
	})
	return out
}

// Dimensions returns the dimension names joined by commas.
func (s *Session) Dimensions() string {
	var out string
	s.withFile(func(f *netcdf.File) {
		dims := f.Dimensions()
		names := make([]string, len(dims))
		for i, d := range dims {
			names[i] = d.Name
		}
		out = strings.Join(names, ",")
	})
	return out
}

// VariableDimensions returns a variable's dimension names joined by commas.
func (s *Session) VariableDimensions(name string) string {
	var out string
	s.withFile(func(f *netcdf.File) {
		dims, err := f.VariableDimensions(name)
		if err != nil {
			return
		}
		out = strings.Join(dims, ",")
	})
	return out
}

// VariableType returns the element type name of a variable (i8, u8, i16,
// i32, f32 or f64).
func (s *Session) VariableType(name string) string {
	var out string
	s.withFile(func(f *netcdf.File) {
		t, err := f.VariableType(name)
		if err != nil {
			return
		}
		out = t.NativeName()
	})
	return out
}

// VariableStringAttribute returns a char attribute of a variable.
func (s *Session) VariableStringAttribute(variable, name string) string {
	var out string
	s.withFile(func(f *netcdf.File) {
		out, _ = f.VariableAttribute(variable, name)
	})
	return out
}

// DimensionLength returns the length of a dimension, or 0.
func (s *Session) DimensionLength(name string) int {
	var out int
	s.withFile(func(f *netcdf.File) {
		n, err := f.DimensionLength(name)
		if err != nil {
			return
		}
		out = n
	})
	return out
}

// SessionValue reads one element. Any failure yields the zero value, which
// the caller cannot tell apart from a stored zero.
func SessionValue[T netcdf.Element](s *Session, name string, index []int) T {
	var out T
	s.withFile(func(f *netcdf.File) {
		v, err := netcdf.Value[T](f, name, index)
		if err != nil {
			s.logger.Debug("value failed", zap.String("variable", name), zap.Error(err))
			return
		}
		out = v
	})
	return out
}

// SessionValues reads a window and exports it. The caller must hand the
// buffer back to Drop exactly once.
func SessionValues[T netcdf.Element](s *Session, name string, start, end []int) (Buffer, bool) {
	var (
		out Buffer
		ok  bool
	)
	s.withFile(func(f *netcdf.File) {
		values, err := netcdf.Values[T](f, name, start, end)
		if err != nil {
			s.logger.Debug("values failed", zap.String("variable", name), zap.Error(err))
			return
		}
		b, err := Export(s.reg, values)
		if err != nil {
			s.logger.Warn("exporting values failed", zap.String("variable", name), zap.Error(err))
			return
		}
		out, ok = b, true
	})
	return out, ok
}

// Drop releases a buffer returned by SessionValues. It does not need an open
// file.
func (s *Session) Drop(b Buffer) bool {
	if err := s.reg.Release(b); err != nil {
		s.logger.Warn("dropping buffer failed",
			zap.String("elem", b.Elem.String()),
			zap.Int("len", b.Len),
			zap.Error(err),
		)
		return false
	}
	return true
}
