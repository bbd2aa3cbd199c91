package httpapi

import (
	"errors"
	"net/http"

	gojson "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error boundary.NormalizedError `json:"error"`
}

func writeJSON(c *echo.Context, status int, v any) error {
	data, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, data)
}

// writeError normalizes err and picks a status from its kind.
func writeError(c *echo.Context, err error) error {
	n := boundary.Normalize(err)
	return writeJSON(c, statusFor(err, n), ErrorResponse{Error: n})
}

func statusFor(err error, n boundary.NormalizedError) int {
	switch {
	case errors.Is(err, ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRemoteNotAllowed):
		return http.StatusForbidden
	}
	switch n.Kind {
	case netcdf.KindVariableNotFound, netcdf.KindDimensionNotFound,
		netcdf.KindNoVariables, netcdf.KindNoDimensions:
		return http.StatusNotFound
	case netcdf.KindInvalidIndex:
		return http.StatusBadRequest
	case netcdf.KindIO:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

var errBadRequest = errors.New("bad request")
