package tiler

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{{{-98, 30}, {-97, 30}, {-97, 31}, {-98, 31}, {-98, 30}}})
	f.Properties["NAME"] = "Austin-Round Rock"
	fc.Append(f)
	fc.Append(geojson.NewFeature(nil))
	return fc
}

func TestTileContainingFeature(t *testing.T) {
	tl := New("boundaries", square())
	assert.Equal(t, orb.Bound{Min: orb.Point{-98, 30}, Max: orb.Point{-97, 31}}, tl.Bound())

	for _, c := range [][3]uint32{{0, 0, 0}, {6, 14, 26}} {
		data, err := tl.Tile(c[0], c[1], c[2])
		require.NoError(t, err)
		require.NotEmpty(t, data, "tile %v", c)

		layers, err := mvt.UnmarshalGzipped(data)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, "boundaries", layers[0].Name)
		require.Len(t, layers[0].Features, 1)
		assert.Equal(t, "Austin-Round Rock", layers[0].Features[0].Properties["NAME"])
	}
}

func TestTileOutsideFeatures(t *testing.T) {
	tl := New("boundaries", square())

	data, err := tl.Tile(6, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTileCachedAndSourceUntouched(t *testing.T) {
	fc := square()
	tl := New("boundaries", fc)

	first, err := tl.Tile(6, 14, 26)
	require.NoError(t, err)
	second, err := tl.Tile(6, 14, 26)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, orb.Point{-98, 30}, fc.Features[0].Geometry.(orb.Polygon)[0][0])
}

func TestInvalidTile(t *testing.T) {
	tl := New("boundaries", square())

	_, err := tl.Tile(MaxZoom+1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidTile)

	_, err = tl.Tile(2, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidTile)
}

func TestIntersects(t *testing.T) {
	tile := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	big := orb.Polygon{{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}, {-5, -5}}}
	far := orb.Polygon{{{10, 10}, {11, 10}, {11, 11}, {10, 11}, {10, 10}}}

	assert.True(t, intersects(big, tile), "polygon covering the whole tile")
	assert.False(t, intersects(far, tile))
	assert.True(t, intersects(orb.MultiPolygon{far, big}, tile))
	assert.False(t, intersects(orb.Point{2, 2}, tile))
}

func TestEmptyTilesAreNotCached(t *testing.T) {
	tl := New("boundaries", square())

	for x := uint32(0); x < 500; x++ {
		data, err := tl.Tile(MaxZoom, x, 0)
		require.NoError(t, err)
		assert.Empty(t, data)
	}
	assert.Equal(t, 0, tl.Cached())

	_, err := tl.Tile(6, 14, 26)
	require.NoError(t, err)
	assert.Equal(t, 1, tl.Cached())
}

func TestCacheIsBounded(t *testing.T) {
	tl := NewWithCacheSize("boundaries", square(), 1)

	for _, c := range [][3]uint32{{0, 0, 0}, {6, 14, 26}, {5, 7, 13}} {
		data, err := tl.Tile(c[0], c[1], c[2])
		require.NoError(t, err)
		require.NotEmpty(t, data, "tile %v", c)
	}
	assert.Equal(t, 1, tl.Cached())
}

func TestCollectionWithoutGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(nil))
	tl := New("boundaries", fc)

	data, err := tl.Tile(0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, 0, tl.Cached())
}
