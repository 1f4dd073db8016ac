// Package tiler cuts the boundary overlay into Mapbox vector tiles on
// demand, so large polygon layers can be drawn without shipping the whole
// GeoJSON document to the browser.
//
// Tiles are built with paulmach/orb: features are selected by bound,
// simplified per zoom, clipped, projected to the 4096 tile extent and
// gzipped. Non-empty tiles are kept in a bounded LRU cache.
package tiler

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// MaxZoom is the deepest zoom served.
const MaxZoom = 14

// DefaultCacheSize is the number of non-empty tiles kept per Tiler.
const DefaultCacheSize = 4096

// ErrInvalidTile is returned for coordinates outside the tile pyramid.
var ErrInvalidTile = errors.New("invalid tile")

// Tiler serves vector tiles for one feature collection.
type Tiler struct {
	layer string
	fc    *geojson.FeatureCollection
	bound orb.Bound
	empty bool // no feature has a geometry
	cache *lru.Cache[maptile.Tile, []byte]
}

// New creates a tiler that encodes fc as a single MVT layer, caching up to
// DefaultCacheSize tiles.
func New(layer string, fc *geojson.FeatureCollection) *Tiler {
	return NewWithCacheSize(layer, fc, DefaultCacheSize)
}

// NewWithCacheSize is New with an explicit tile cache bound.
func NewWithCacheSize(layer string, fc *geojson.FeatureCollection, size int) *Tiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[maptile.Tile, []byte](size)

	t := &Tiler{
		layer: layer,
		fc:    fc,
		empty: true,
		cache: cache,
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if t.empty {
			t.bound = f.Geometry.Bound()
			t.empty = false
			continue
		}
		t.bound = t.bound.Union(f.Geometry.Bound())
	}
	return t
}

// Layer returns the MVT layer name.
func (t *Tiler) Layer() string {
	return t.layer
}

// Bound returns the union of all feature bounds.
func (t *Tiler) Bound() orb.Bound {
	return t.bound
}

// Tile returns the gzipped MVT for z/x/y, or nil when no feature touches
// the tile.
func (t *Tiler) Tile(z, x, y uint32) ([]byte, error) {
	if z > MaxZoom || x >= 1<<z || y >= 1<<z {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidTile, z, x, y)
	}
	tile := maptile.New(x, y, maptile.Zoom(z))
	if t.empty || !t.bound.Intersects(tile.Bound()) {
		return nil, nil
	}

	if data, ok := t.cache.Get(tile); ok {
		return data, nil
	}

	data, err := t.build(tile)
	if err != nil {
		return nil, err
	}
	// Empty tiles are cheap to rebuild and unbounded in number.
	if len(data) > 0 {
		t.cache.Add(tile, data)
	}
	return data, nil
}

// Cached returns the number of tiles held in the cache.
func (t *Tiler) Cached() int {
	return t.cache.Len()
}

func (t *Tiler) build(tile maptile.Tile) ([]byte, error) {
	tileBound := tile.Bound()

	fc := geojson.NewFeatureCollection()
	for _, f := range t.fc.Features {
		if f.Geometry == nil || !intersects(f.Geometry, tileBound) {
			continue
		}
		// Clip and ProjectToTile mutate in place.
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		fc.Append(clone)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(t.layer, fc)
	if epsilon := simplifyEpsilon(tile.Z); epsilon > 0 {
		layer.Simplify(simplify.DouglasPeucker(epsilon))
	}
	layer.Clip(tileBound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// intersects reports whether a geometry reaches into the tile, beyond a
// bounding box overlap.
func intersects(geom orb.Geometry, tileBound orb.Bound) bool {
	if !geom.Bound().Intersects(tileBound) {
		return false
	}

	switch g := geom.(type) {
	case orb.Point:
		return tileBound.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if tileBound.Contains(p) {
				return true
			}
		}
		return false
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if tileBound.Contains(p) {
					return true
				}
			}
		}
		// Tile corners or center inside the polygon cover the case where
		// the polygon swallows the whole tile.
		corners := []orb.Point{
			tileBound.Min,
			{tileBound.Max[0], tileBound.Min[1]},
			tileBound.Max,
			{tileBound.Min[0], tileBound.Max[1]},
			tileBound.Center(),
		}
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, poly := range g {
			if intersects(poly, tileBound) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// simplifyEpsilon returns the Douglas-Peucker tolerance in degrees for a
// zoom level. Boundaries need no detail beyond what a tile pixel can show.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 12:
		return 0
	case zoom >= 9:
		return 0.0001
	case zoom >= 6:
		return 0.001
	default:
		return 0.01
	}
}
