package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// OpenRequest opens a local file (Path, relative to the root) or a remote
// one (URL, with Size 0 meaning ask the server). URLs must fall under one of
// the server's allowed prefixes.
type OpenRequest struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type OpenResponse struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type HandleInfo struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

func (s *Server) handleOpen(c *echo.Context) error {
	var req OpenRequest
	if err := gojson.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeError(c, fmt.Errorf("%w: decoding open request: %v", errBadRequest, err))
	}

	var (
		f      *netcdf.File
		source string
		err    error
	)
	switch {
	case req.Path != "" && req.URL != "":
		return writeError(c, fmt.Errorf("%w: path and url are exclusive", errBadRequest))
	case req.Path != "":
		source = s.resolve(req.Path)
		f, err = netcdf.OpenFile(source, s.fileOpt...)
	case req.URL != "":
		source = req.URL
		if !s.remoteAllowed(req.URL) {
			s.logger.Warn("refused remote open", zap.String("url", req.URL))
			return writeError(c, fmt.Errorf("%w: %s", ErrRemoteNotAllowed, req.URL))
		}
		f, err = netcdf.OpenRemote(s.ctx, req.URL, req.Size, s.fileOpt...)
	default:
		return writeError(c, fmt.Errorf("%w: path or url required", errBadRequest))
	}
	if err != nil {
		s.logger.Debug("open failed", zap.String("source", source), zap.Error(err))
		return writeError(c, err)
	}

	id := s.add(f, source)
	s.logger.Info("opened handle", zap.String("id", id), zap.String("source", source))
	return writeJSON(c, http.StatusCreated, OpenResponse{ID: id, Source: source})
}

func (s *Server) handleList(c *echo.Context) error {
	s.mu.RLock()
	out := make([]HandleInfo, 0, len(s.handles))
	for id, h := range s.handles {
		out = append(out, HandleInfo{ID: id, Source: h.source})
	}
	s.mu.RUnlock()
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleClose(c *echo.Context) error {
	h, err := s.remove(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.file.Close(); err != nil {
		s.logger.Warn("closing handle", zap.String("source", h.source), zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMapSize(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	size, err := h.file.MapSize()
	if err != nil {
		return writeError(c, err)
	}
	return writeJSON(c, http.StatusOK, map[string]int64{"map_size": size})
}

func (s *Server) handleVariables(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	vars, err := h.file.Variables()
	if err != nil {
		return writeError(c, err)
	}
	return writeJSON(c, http.StatusOK, vars)
}

func (s *Server) handleVariable(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	vars, err := h.file.Variables()
	if err != nil {
		return writeError(c, err)
	}
	name := c.Param("name")
	for _, v := range vars {
		if v.Name == name {
			return writeJSON(c, http.StatusOK, v)
		}
	}
	return writeError(c, &netcdf.Error{Kind: netcdf.KindVariableNotFound, Name: name})
}

func (s *Server) handleDimensions(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return writeJSON(c, http.StatusOK, h.file.Dimensions())
}

func (s *Server) handleAttribute(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	value, ok := h.file.Attribute(c.Param("attr"))
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}
	return writeJSON(c, http.StatusOK, map[string]string{"value": value})
}

func (s *Server) handleVariableAttribute(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	value, ok := h.file.VariableAttribute(c.Param("name"), c.Param("attr"))
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}
	return writeJSON(c, http.StatusOK, map[string]string{"value": value})
}

func (s *Server) handleValue(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	name := c.Param("name")
	elem, err := s.elemType(h.file, name, c.QueryParam("type"))
	if err != nil {
		return writeError(c, err)
	}
	index, err := parseIndex(c.QueryParam("index"))
	if err != nil {
		return writeError(c, err)
	}

	v, err := boundary.ReadValue(h.file, name, elem, index)
	if err != nil {
		return writeError(c, err)
	}
	return writeJSON(c, http.StatusOK, map[string]any{"type": elem.String(), "value": boundary.JSONValue(v)})
}

func (s *Server) handleValues(c *echo.Context) error {
	h, err := s.get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	name := c.Param("name")
	elem, err := s.elemType(h.file, name, c.QueryParam("type"))
	if err != nil {
		return writeError(c, err)
	}
	start, err := parseIndex(c.QueryParam("start"))
	if err != nil {
		return writeError(c, err)
	}
	end, err := parseIndex(c.QueryParam("end"))
	if err != nil {
		return writeError(c, err)
	}

	values, err := boundary.ReadValues(h.file, name, elem, start, end)
	if err != nil {
		return writeError(c, err)
	}
	return writeJSON(c, http.StatusOK, map[string]any{"type": elem.String(), "values": boundary.JSONValues(values)})
}

func (s *Server) elemType(f *netcdf.File, variable, name string) (boundary.ElemType, error) {
	if name == "" {
		return boundary.NativeElemType(f, variable)
	}
	elem, ok := boundary.ParseElemType(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown element type %q", errBadRequest, name)
	}
	return elem, nil
}

// parseIndex parses a comma separated list such as "0,2,1". An empty string
// yields nil.
func parseIndex(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: index %q: %v", errBadRequest, s, errors.Unwrap(err))
		}
		out[i] = n
	}
	return out, nil
}
