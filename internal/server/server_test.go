package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/propmap/internal/logger/loggertest"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = "../geodata/testdata"
	}
	cfg.NoDB = true
	cfg.Log = loggertest.New(t)

	srv, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRootRedirectsToMap(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := get(srv, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/map", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
}

func TestMapPage(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := get(srv, "/map?preset=texas-msa")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "Texas Metropolitan Statistical Areas")
	assert.Contains(t, body, `id="legend"`)
	assert.Contains(t, body, "Population in 2015")
	assert.Contains(t, body, "MSA Boundaries")
	assert.Contains(t, body, "Leaflet.VectorGrid")
	assert.Contains(t, body, `data-overlay-tiles="/api/v1/presets/texas-msa/overlay/tiles/{z}/{x}/{y}"`)
	assert.Equal(t, 1, srv.Services().Sessions.Len())

	assert.Equal(t, http.StatusNotFound, get(srv, "/map?preset=nope").Code)
}

func TestMapPageDefaultPreset(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := get(srv, "/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Texas Metropolitan Statistical Areas")
}

func TestMapPageWithoutOverlayHasNoTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  - name: points-only
    points: MSA.geojson
`), 0o644))

	srv := newTestServer(t, Config{PresetsFile: path})
	rec := get(srv, "/map?preset=points-only")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "data-overlay-tiles")
}

func TestStrictModeRejectsMissingPoints(t *testing.T) {
	srv := newTestServer(t, Config{Strict: true})

	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/map?preset=us-cities").Code)
}

func TestPresetsFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  - name: texas-msa
    title: Overridden
    points: MSA.geojson
`), 0o644))

	srv := newTestServer(t, Config{PresetsFile: path})
	rec := get(srv, "/map?preset=texas-msa")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Overridden")
}

func TestAPIMounted(t *testing.T) {
	srv := newTestServer(t, Config{})

	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/api/v1/presets").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/api/v1/tables").Code)

	spec := srv.OpenAPI()
	require.NotNil(t, spec)
	assert.Contains(t, spec.Paths, "/api/v1/sessions/{id}/forward")
	assert.Contains(t, spec.Paths, "/api/v1/viewer/sessions/{id}/slide")
}

func TestStaticFiles(t *testing.T) {
	web := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(web, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(web, "static", "propmap.css"), []byte("#map{}"), 0o644))

	srv := newTestServer(t, Config{WebDir: web})
	rec := get(srv, "/static/propmap.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#map{}", rec.Body.String())
}
