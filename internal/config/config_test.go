package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltin(t *testing.T) {
	presets, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "texas-msa", presets.Default())

	tx, err := presets.Get("texas-msa")
	require.NoError(t, err)
	assert.Equal(t, "MSA.geojson", tx.Points)
	assert.Equal(t, "MSA_Poly.geojson", tx.Polygons)
	assert.Equal(t, "Pop", tx.PointFilter)
	assert.Equal(t, 0.001, tx.ScaleFactor)
	assert.Equal(t, [2]float64{31.296, -98.926}, tx.View.Center)
	assert.Equal(t, "#006FFF", tx.Symbol.FillColor)
	assert.Equal(t, "MSA Boundaries", tx.Overlay.Label)
	assert.Equal(t, 0.2, tx.Overlay.Style.FillOpacity)

	us, err := presets.Get("us-cities")
	require.NoError(t, err)
	assert.Empty(t, us.Polygons)
	assert.Equal(t, "City", us.PopupLabel)
}

func TestLoadOverridesAndExtends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  - name: us-cities
    points: cities.geojson
    attributes: [Pop_2000, Pop_2010]
  - name: ohio
    points: ohio.geojson
`), 0o644))

	presets, err := Load(path)
	require.NoError(t, err)

	names := []string{}
	for _, p := range presets.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"texas-msa", "us-cities", "ohio"}, names)

	us, err := presets.Get("us-cities")
	require.NoError(t, err)
	assert.Equal(t, "cities.geojson", us.Points)
	assert.Equal(t, []string{"Pop_2000", "Pop_2010"}, us.Attributes)
	assert.Equal(t, "Name", us.PopupLabel, "defaults applied to overriding entry")
}

func TestGetUnknown(t *testing.T) {
	presets, err := Load("")
	require.NoError(t, err)

	_, err = presets.Get("mars")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("presets:\n  - name: x\n"))
	assert.ErrorContains(t, err, "points source is required")

	_, err = Parse([]byte("presets:\n  - name: x\n    points: a.geojson\n    attributes: [Pop_1]\n    steps: 3\n"))
	assert.ErrorContains(t, err, "exceeds")

	_, err = Parse([]byte("presets: [\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading presets")
}
