// Package httpapi exposes netCDF handles over HTTP. Each open file is a
// handle addressed by a uuid; any number of handles can be live at once.
// The server can also publish a directory with byte-range support so remote
// handles have something to read from.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// ErrUnknownHandle is returned for ids that were never issued or are closed.
var ErrUnknownHandle = errors.New("httpapi: unknown handle")

// ErrRemoteNotAllowed is returned when a client asks to open a URL outside
// the configured prefixes.
var ErrRemoteNotAllowed = errors.New("httpapi: remote source not allowed")

// Config configures a Server.
type Config struct {
	// Root is the directory local opens and GET /files are resolved against.
	Root string
	// BaseContext bounds remote reads made on behalf of handles. It outlives
	// the request that opened the handle.
	BaseContext context.Context
	Logger      *zap.Logger
	// FileOptions are passed to every open.
	FileOptions []netcdf.Option
	// AllowedRemotes lists the URL prefixes clients may open, such as
	// "https://data.example.org/netcdf/". Scheme and host must match
	// exactly. With no prefixes every remote open is refused.
	AllowedRemotes []string
}

type handle struct {
	file   *netcdf.File
	source string
}

// Server tracks open handles.
type Server struct {
	root    string
	ctx     context.Context
	logger  *zap.Logger
	fileOpt []netcdf.Option
	allowed []*url.URL

	mu      sync.RWMutex
	handles map[string]*handle
}

// NewServer returns a server with no open handles.
func NewServer(cfg Config) *Server {
	s := &Server{
		root:    cfg.Root,
		ctx:     cfg.BaseContext,
		logger:  cfg.Logger,
		fileOpt: cfg.FileOptions,
		handles: make(map[string]*handle),
	}
	if s.root == "" {
		s.root = "."
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, prefix := range cfg.AllowedRemotes {
		u, err := url.Parse(prefix)
		if err != nil || u.Host == "" {
			s.logger.Warn("ignoring allowed remote", zap.String("prefix", prefix))
			continue
		}
		s.allowed = append(s.allowed, u)
	}
	return s
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/handles", s.handleOpen)
	e.GET("/handles", s.handleList)
	e.DELETE("/handles/:id", s.handleClose)
	e.GET("/handles/:id/map_size", s.handleMapSize)
	e.GET("/handles/:id/variables", s.handleVariables)
	e.GET("/handles/:id/variables/:name", s.handleVariable)
	e.GET("/handles/:id/variables/:name/value", s.handleValue)
	e.GET("/handles/:id/variables/:name/values", s.handleValues)
	e.GET("/handles/:id/variables/:name/attributes/:attr", s.handleVariableAttribute)
	e.GET("/handles/:id/dimensions", s.handleDimensions)
	e.GET("/handles/:id/attributes/:attr", s.handleAttribute)
	e.GET("/files/*", s.handleFile)
}

// Echo returns an echo instance with recovery middleware and the routes
// mounted.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())
	s.Register(e)
	return e
}

// Serve listens on addr until ctx is done, then closes every handle.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout time.Duration) error {
	defer s.Close()
	s.logger.Info("starting server", zap.String("address", addr), zap.String("root", s.root))
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = readTimeout
			return nil
		},
	}
	return sc.Start(ctx, s.Echo())
}

// resolve maps a client path onto the root. Cleaning the path as if it were
// absolute removes every leading "..", so the result never leaves the root.
func (s *Server) resolve(path string) string {
	return filepath.Join(s.root, filepath.Clean("/"+filepath.FromSlash(path)))
}

// remoteAllowed reports whether raw falls under one of the allowed prefixes.
// Paths containing dot segments are refused so they cannot climb out of a
// prefix.
func (s *Server) remoteAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if clean := path.Clean("/" + u.Path); clean != u.Path && clean+"/" != u.Path {
		return false
	}
	for _, p := range s.allowed {
		if u.Scheme == p.Scheme && u.Host == p.Host && strings.HasPrefix(u.Path, p.Path) {
			return true
		}
	}
	return false
}

func (s *Server) add(f *netcdf.File, source string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.handles[id] = &handle{file: f, source: source}
	s.mu.Unlock()
	return id
}

func (s *Server) get(id string) (*handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return h, nil
}

func (s *Server) remove(id string) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	if !ok {
		return nil, ErrUnknownHandle
	}
	delete(s.handles, id)
	return h, nil
}

// Handles returns the ids of the live handles in sorted order.
func (s *Server) Handles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every handle.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for id, h := range s.handles {
		if err := h.file.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.handles, id)
	}
	return errors.Join(errs...)
}
