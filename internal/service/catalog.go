package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/propmap/internal/config"
	"github.com/joeblew999/propmap/internal/db"
	"github.com/joeblew999/propmap/internal/geodata"
	"github.com/joeblew999/propmap/internal/propsym"
	"github.com/joeblew999/propmap/internal/tiler"
)

// overlayLayer is the MVT layer name of boundary tiles.
const overlayLayer = "boundaries"

// ErrPointsUnavailable is returned in strict mode when the point layer
// fails to load.
var ErrPointsUnavailable = errors.New("point layer unavailable")

// AttributeSink receives the attribute table of every loaded dataset.
type AttributeSink interface {
	Ingest(ctx context.Context, preset string, rows []db.AttributeRow) error
}

// PointFeature is a point-layer feature reduced to what the renderers use.
type PointFeature struct {
	ID         string
	Name       string
	Location   orb.Point
	Properties map[string]any
}

// Dataset is a preset's loaded, immutable data.
type Dataset struct {
	Preset            config.Preset
	Points            []PointFeature
	Overlay           *geojson.FeatureCollection
	OverlayBound      orb.Bound
	OverlayTiles      *tiler.Tiler
	Attributes        []string
	PolygonAttributes []string
	Steps             int
	Status            DatasetStatus
}

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	Presets *config.Presets
	Loader  *geodata.Loader
	Sink    AttributeSink // optional
	Strict  bool          // fail when the point layer cannot load
	Log     *zap.SugaredLogger
}

// Catalog loads datasets on first use and caches them per preset.
type Catalog struct {
	cfg      CatalogConfig
	mu       sync.RWMutex
	datasets map[string]*Dataset
	group    singleflight.Group
}

// NewCatalog creates a new catalog.
func NewCatalog(cfg CatalogConfig) *Catalog {
	return &Catalog{cfg: cfg, datasets: map[string]*Dataset{}}
}

// Presets returns the preset registry.
func (c *Catalog) Presets() *config.Presets {
	return c.cfg.Presets
}

// Dataset returns the loaded dataset for a preset, loading it if needed.
// Concurrent callers for the same preset share one load.
func (c *Catalog) Dataset(ctx context.Context, name string) (*Dataset, error) {
	c.mu.RLock()
	ds, ok := c.datasets[name]
	c.mu.RUnlock()
	if ok {
		return ds, nil
	}

	preset, err := c.cfg.Presets.Get(name)
	if err != nil {
		return nil, err
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.datasets[name]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		ds, err := c.load(context.WithoutCancel(ctx), preset)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.datasets[name] = ds
		c.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

// Invalidate drops a cached dataset so the next request reloads it.
func (c *Catalog) Invalidate(name string) {
	c.mu.Lock()
	delete(c.datasets, name)
	c.mu.Unlock()
}

func (c *Catalog) load(ctx context.Context, preset config.Preset) (*Dataset, error) {
	log := c.cfg.Log.With("preset", preset.Name)
	pair := c.cfg.Loader.FetchPair(ctx, preset.Points, preset.Polygons)

	ds := &Dataset{
		Preset: preset,
		Status: DatasetStatus{
			PointsSource:   preset.Points,
			PolygonsSource: preset.Polygons,
			LoadedAt:       time.Now(),
		},
	}

	if pair.PointsErr != nil {
		ds.Status.PointsError = pair.PointsErr.Error()
		if c.cfg.Strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrPointsUnavailable, preset.Name, pair.PointsErr)
		}
	}
	if pair.PolygonsErr != nil {
		ds.Status.PolygonsError = pair.PolygonsErr.Error()
	}

	if pair.Points != nil {
		ds.Status.PointsLoaded = true
		ds.Points = pointFeatures(pair.Points.Collection, log)
		ds.Status.PointFeatures = len(ds.Points)

		attrs, err := resolveAttributes(preset, pair.Points)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", preset.Name, err)
		}
		ds.Attributes = attrs
	}

	if pair.Polygons != nil {
		ds.Status.PolygonsLoaded = true
		ds.Overlay = pair.Polygons.Collection
		ds.Status.PolygonFeatures = len(ds.Overlay.Features)
		ds.OverlayTiles = tiler.New(overlayLayer, ds.Overlay)
		ds.OverlayBound = ds.OverlayTiles.Bound()
		ds.PolygonAttributes = propsym.Discover(pair.Polygons.Keys, preset.PolygonFilter)
	}

	ds.Steps = len(ds.Attributes)
	// A pinned step count only constrains a point layer that loaded.
	if preset.Steps > 0 && pair.Points != nil {
		if preset.Steps > len(ds.Attributes) {
			return nil, fmt.Errorf("preset %s: steps %d exceeds %d loaded attributes", preset.Name, preset.Steps, len(ds.Attributes))
		}
		ds.Steps = preset.Steps
	}

	if c.cfg.Sink != nil && len(ds.Points) > 0 {
		if err := c.cfg.Sink.Ingest(ctx, preset.Name, ds.attributeRows()); err != nil {
			log.Warnw("attribute ingest failed", "err", err)
		}
	}

	log.Infow("dataset loaded",
		"points", ds.Status.PointFeatures,
		"polygons", ds.Status.PolygonFeatures,
		"attributes", len(ds.Attributes),
		"steps", ds.Steps,
	)
	return ds, nil
}

// resolveAttributes validates an explicit schema against the first point
// feature, or discovers attributes from its keys in document order.
func resolveAttributes(preset config.Preset, points *geodata.Layer) ([]string, error) {
	if len(preset.Attributes) > 0 {
		props := points.FirstProperties()
		if props == nil {
			return nil, fmt.Errorf("%w: point layer has no features", propsym.ErrMissingAttributes)
		}
		if err := propsym.Validate(preset.Attributes, props); err != nil {
			return nil, err
		}
		return append([]string(nil), preset.Attributes...), nil
	}
	return propsym.Discover(points.Keys, preset.PointFilter), nil
}

func pointFeatures(fc *geojson.FeatureCollection, log *zap.SugaredLogger) []PointFeature {
	points := make([]PointFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		loc, ok := anchor(f.Geometry)
		if !ok {
			log.Debugw("skipping feature without usable geometry", "index", i)
			continue
		}

		id := fmt.Sprintf("f%d", i)
		if f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		name, _ := f.Properties["NAME"].(string)
		if name == "" && f.Properties["NAME"] != nil {
			name = propsym.Format(f.Properties["NAME"])
		}

		points = append(points, PointFeature{
			ID:         id,
			Name:       name,
			Location:   loc,
			Properties: f.Properties,
		})
	}
	return points
}

// anchor returns where a feature's symbol sits: the point itself, or the
// centroid of anything else.
func anchor(g orb.Geometry) (orb.Point, bool) {
	switch geom := g.(type) {
	case nil:
		return orb.Point{}, false
	case orb.Point:
		return geom, true
	case orb.MultiPoint:
		if len(geom) == 0 {
			return orb.Point{}, false
		}
		return geom[0], true
	default:
		c, _ := planar.CentroidArea(geom)
		return c, true
	}
}

func (d *Dataset) attributeRows() []db.AttributeRow {
	rows := make([]db.AttributeRow, 0, len(d.Points)*len(d.Attributes))
	for _, p := range d.Points {
		for _, attr := range d.Attributes {
			v, ok := propsym.Lookup(p.Properties, attr)
			rows = append(rows, db.AttributeRow{
				Feature:   p.Name,
				Attribute: attr,
				Year:      propsym.Year(attr),
				Value:     sql.NullFloat64{Float64: v, Valid: ok && propsym.Finite(v)},
			})
		}
	}
	return rows
}
