package httpapi

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-netcdf/internal/cdftest"
	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

var surface = cdftest.New().
	Dim("x", 2).
	Dim("y", 3).
	Attr("title", "Surface").
	Var("temp", dtype.Float, "x", "y").Attr("units", "K").Data(280, 281, 282, 283, 284, 285).
	Var("flag", dtype.Char, "x").Data('a', 'b').
	Bytes()

func newTestServer(t *testing.T) (*Server, *echo.Echo) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "surface.nc"), surface, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.nc"), []byte("junk"), 0o644))

	s := NewServer(Config{Root: root})
	t.Cleanup(func() { s.Close() })
	return s, s.Echo()
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func openLocal(t *testing.T, e *echo.Echo, path string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/handles", `{"path":"`+path+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[OpenResponse](t, rec).ID
}

func TestHandleLifecycle(t *testing.T) {
	s, e := newTestServer(t)
	id := openLocal(t, e, "surface.nc")
	assert.Equal(t, []string{id}, s.Handles())

	rec := do(t, e, http.MethodGet, "/handles/"+id+"/variables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	vars := decode[[]netcdf.VariableInfo](t, rec)
	require.Len(t, vars, 2)
	assert.Equal(t, "temp", vars[0].Name)
	assert.Equal(t, 5, vars[0].Kind)
	assert.Equal(t, []string{"x", "y"}, vars[0].Dimensions)
	assert.Equal(t, map[string]string{"units": "K"}, vars[0].Attributes)
	assert.Equal(t, 6, vars[0].Length)

	rec = do(t, e, http.MethodGet, "/handles/"+id+"/dimensions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []netcdf.DimensionInfo{{Name: "x", Length: 2}, {Name: "y", Length: 3}},
		decode[[]netcdf.DimensionInfo](t, rec))

	rec = do(t, e, http.MethodGet, "/handles/"+id+"/map_size", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(len(surface)), decode[map[string]int64](t, rec)["map_size"])

	rec = do(t, e, http.MethodGet, "/handles/"+id+"/attributes/title", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"value":"Surface"}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/handles/"+id+"/variables/temp/attributes/units", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"value":"K"}`, rec.Body.String())

	rec = do(t, e, http.MethodDelete, "/handles/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.Handles())

	rec = do(t, e, http.MethodGet, "/handles/"+id+"/variables", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodDelete, "/handles/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValues(t *testing.T) {
	_, e := newTestServer(t)
	id := openLocal(t, e, "surface.nc")
	base := "/handles/" + id + "/variables/"

	rec := do(t, e, http.MethodGet, base+"temp/values?start=1,0&end=2,3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"f32","values":[283,284,285]}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"temp/values?type=i32&end=1,2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"i32","values":[280,281]}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"flag/values", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"u8","values":[97,98]}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"temp/value?index=1,1&type=f64", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"f64","value":284}`, rec.Body.String())
}

func TestNonFiniteValues(t *testing.T) {
	s, e := newTestServer(t)
	gaps := cdftest.New().
		Dim("n", 3).
		Var("t", dtype.Float, "n").Data(1, math.NaN(), 3).
		Var("w", dtype.Double, "n").Data(math.Inf(1), 2, math.Inf(-1)).
		Bytes()
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "gaps.nc"), gaps, 0o644))
	id := openLocal(t, e, "gaps.nc")
	base := "/handles/" + id + "/variables/"

	rec := do(t, e, http.MethodGet, base+"t/values", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, gojson.Valid(rec.Body.Bytes()), rec.Body.String())
	assert.JSONEq(t, `{"type":"f32","values":[1,null,3]}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"w/values", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"f64","values":[null,2,null]}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"t/value?index=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"type":"f32","value":null}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	_, e := newTestServer(t)
	id := openLocal(t, e, "surface.nc")
	base := "/handles/" + id + "/variables/"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		json   string
	}{
		{"missing variable", http.MethodGet, base + "nope", "", http.StatusNotFound, `{"error":{"VariableNotFound":"nope"}}`},
		{"missing variable values", http.MethodGet, base + "nope/values", "", http.StatusNotFound, `{"error":{"VariableNotFound":"nope"}}`},
		{"invalid file", http.MethodPost, "/handles", `{"path":"junk.nc"}`, http.StatusUnprocessableEntity, `{"error":"InvalidFile"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.json, rec.Body.String())
		})
	}

	statusOnly := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"out of range", http.MethodGet, base + "temp/value?index=5,0", "", http.StatusBadRequest},
		{"negative index", http.MethodGet, base + "temp/value?index=-1,0", "", http.StatusBadRequest},
		{"malformed index", http.MethodGet, base + "temp/values?start=a", "", http.StatusBadRequest},
		{"unknown type", http.MethodGet, base + "temp/values?type=i64", "", http.StatusBadRequest},
		{"missing attribute", http.MethodGet, "/handles/" + id + "/attributes/nope", "", http.StatusNotFound},
		{"empty open", http.MethodPost, "/handles", `{}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/handles", `{`, http.StatusBadRequest},
		{"missing file", http.MethodPost, "/handles", `{"path":"missing.nc"}`, http.StatusBadGateway},
		{"unknown handle", http.MethodGet, "/handles/nope/dimensions", "", http.StatusNotFound},
	}
	for _, tt := range statusOnly {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestOpenStaysUnderRoot(t *testing.T) {
	_, e := newTestServer(t)
	rec := do(t, e, http.MethodPost, "/handles", `{"path":"../../../../etc/passwd"}`)
	assert.NotEqual(t, http.StatusCreated, rec.Code)
}

func TestServeFileRange(t *testing.T) {
	_, e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/files/surface.nc", nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, surface[:4], rec.Body.Bytes())

	rec = do(t, e, http.MethodGet, "/files/missing.nc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenRemoteThroughFiles(t *testing.T) {
	s, e := newTestServer(t)
	ts := httptest.NewServer(e)
	defer ts.Close()
	u, err := url.Parse(ts.URL + "/files/")
	require.NoError(t, err)
	s.allowed = []*url.URL{u}

	body := `{"url":"` + ts.URL + `/files/surface.nc","size":` + strconv.Itoa(len(surface)) + `}`
	rec := do(t, e, http.MethodPost, "/handles", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[OpenResponse](t, rec).ID

	resp, err := http.Get(ts.URL + "/handles/" + id + "/variables/temp/values?start=0,2&end=1,3")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"type":"f32","values":[282]}`, string(data))
	assert.Len(t, s.Handles(), 1)
}

func TestRemoteAllowList(t *testing.T) {
	s := NewServer(Config{AllowedRemotes: []string{
		"https://data.example.org/netcdf/",
		"not a url",
	}})
	t.Cleanup(func() { s.Close() })

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://data.example.org/netcdf/a.nc", true},
		{"https://data.example.org/netcdf/sub/b.nc", true},
		{"http://data.example.org/netcdf/a.nc", false},
		{"https://data.example.org.evil.test/netcdf/a.nc", false},
		{"https://data.example.org/other/a.nc", false},
		{"https://data.example.org/netcdf/../secret", false},
		{"file:///etc/passwd", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, s.remoteAllowed(tt.url), tt.url)
	}
}

func TestOpenRemoteRefusedByDefault(t *testing.T) {
	s, e := newTestServer(t)
	ts := httptest.NewServer(e)
	defer ts.Close()

	rec := do(t, e, http.MethodPost, "/handles", `{"url":"`+ts.URL+`/files/surface.nc"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Empty(t, s.Handles())
}
