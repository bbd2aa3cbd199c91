package httpapi

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/labstack/echo/v5"
)

// handleFile serves a file under the root. http.ServeContent answers Range
// requests with 206 Partial Content, which is what remote handles issue.
func (s *Server) handleFile(c *echo.Context) error {
	path := s.resolve(c.Param("*"))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.NoContent(http.StatusNotFound)
		}
		return writeError(c, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return writeError(c, err)
	}
	if st.IsDir() {
		return c.NoContent(http.StatusNotFound)
	}

	http.ServeContent(c.Response(), c.Request(), st.Name(), st.ModTime(), f)
	return nil
}
