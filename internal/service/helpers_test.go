package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeblew999/propmap/internal/config"
	"github.com/joeblew999/propmap/internal/db"
	"github.com/joeblew999/propmap/internal/geodata"
	"github.com/joeblew999/propmap/internal/logger/loggertest"
)

const testPresets = `
presets:
  - name: texas
    title: Texas
    points: MSA.geojson
    polygons: MSA_Poly.geojson
    popupLabel: MSA
    overlay:
      label: MSA Boundaries
  - name: no-overlay
    points: MSA.geojson
    polygons: missing.geojson
  - name: broken
    points: missing.geojson
  - name: schema
    points: MSA.geojson
    attributes: [Pop_2010, Pop_2015]
  - name: bad-schema
    points: MSA.geojson
    attributes: [Pop_2010, Pop_2020]
  - name: pinned
    points: MSA.geojson
    steps: 1
  - name: overpinned
    points: MSA.geojson
    steps: 5
  - name: pinned-missing
    points: missing.geojson
    polygons: MSA_Poly.geojson
    steps: 7
  - name: empty
    points: NoPop.geojson
`

type recordingSink struct {
	mu   sync.Mutex
	rows map[string][]db.AttributeRow
}

func (r *recordingSink) Ingest(_ context.Context, preset string, rows []db.AttributeRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = map[string][]db.AttributeRow{}
	}
	r.rows[preset] = rows
	return nil
}

func newTestCatalog(t *testing.T, strict bool, sink AttributeSink) *Catalog {
	t.Helper()
	presets, err := config.Parse([]byte(testPresets))
	require.NoError(t, err)

	log := loggertest.New(t)
	return NewCatalog(CatalogConfig{
		Presets: presets,
		Loader:  geodata.NewLoader("testdata", log),
		Sink:    sink,
		Strict:  strict,
		Log:     log,
	})
}

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	return NewSessionService(newTestCatalog(t, false, nil), NewEventBus(), loggertest.New(t))
}
