package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/propmap/internal/propsym"
)

func loadTexas(t *testing.T) *Dataset {
	t.Helper()
	ds, err := newTestCatalog(t, false, nil).Dataset(context.Background(), "texas")
	require.NoError(t, err)
	return ds
}

func TestRenderMarkers(t *testing.T) {
	ds := loadTexas(t)

	markers := ds.RenderMarkers("Pop_2015")
	require.Len(t, markers, 3)

	m := markers[1]
	assert.Equal(t, "Dallas", m.Name)
	assert.Equal(t, 32.78, m.Lat)
	assert.Equal(t, -96.80, m.Lng)
	assert.Equal(t, 400000.0, m.Value)
	assert.True(t, m.Valid)
	assert.InDelta(t, 11.28, m.Radius, 0.01)
	assert.Equal(t, -m.Radius, m.Popup.OffsetY)
	assert.Equal(t,
		"<p><b>MSA:</b> Dallas</p><p><b>Population in 2015: </b>400000</p>",
		m.Popup.Content)
}

func TestUpdateMarkersAppliesZeroValues(t *testing.T) {
	ds := loadTexas(t)
	markers := ds.RenderMarkers("Pop_2015")
	require.InDelta(t, 8.92, markers[2].Radius, 0.01)

	n := ds.UpdateMarkers(markers, "Pop_2010")
	assert.Equal(t, 3, n)

	houston := markers[2]
	assert.Equal(t, "Pop_2010", houston.Attribute)
	assert.Equal(t, 0.0, houston.Radius)
	assert.Contains(t, houston.Popup.Content, "Population in 2010: </b>0")
}

func TestUpdateMarkersSkipsMissingAttribute(t *testing.T) {
	ds := loadTexas(t)
	markers := ds.RenderMarkers("Pop_2015")
	before := markers[0]

	n := ds.UpdateMarkers(markers, "Pop_1990")
	assert.Equal(t, 0, n)
	assert.Equal(t, before, markers[0])
}

func TestRenderMarkersNonNumeric(t *testing.T) {
	ds := loadTexas(t)
	markers := ds.RenderMarkers("NAME")

	assert.False(t, markers[0].Valid)
	assert.Equal(t, 0.0, markers[0].Radius)
	assert.Contains(t, markers[0].Popup.Content, "Austin")
}

func TestBuildLegend(t *testing.T) {
	ds := loadTexas(t)

	legend := ds.BuildLegend("Pop_2015")
	assert.True(t, legend.Valid)
	assert.Equal(t, "2015", legend.Year)
	assert.Equal(t, "Population in 2015", legend.Heading)
	require.Len(t, legend.Circles, 3)

	max, mean, min := legend.Circles[0], legend.Circles[1], legend.Circles[2]
	assert.Equal(t, "max", max.Key)
	assert.Equal(t, 400000.0, max.Value)
	assert.Equal(t, 250000.0, mean.Value)
	assert.Equal(t, (max.Value+min.Value)/2, mean.Value)
	assert.Equal(t, 100000.0, min.Value)

	assert.Equal(t, propsym.Radius(400000), max.Radius)
	assert.InDelta(t, 5.64, min.Radius, 0.01)
	assert.Equal(t, 120-max.Radius, max.CY)
	assert.Equal(t, 60.0, max.CX)
	assert.Equal(t, []float64{50, 80, 110}, []float64{max.TextY, mean.TextY, min.TextY})
	assert.Equal(t, "250000 People", mean.Label)
}

func TestBuildLegendWithoutValues(t *testing.T) {
	ds := loadTexas(t)

	legend := ds.BuildLegend("Pop_1990")
	assert.False(t, legend.Valid)
	assert.Empty(t, legend.Circles)
	assert.Equal(t, "1990", legend.Year)
}

func TestBuildLegendSkipsInfinity(t *testing.T) {
	ds := loadTexas(t)
	ds.Points = append(append([]PointFeature(nil), ds.Points...), PointFeature{
		ID:         "inf",
		Name:       "Overflow",
		Properties: map[string]any{"Pop_2015": "Infinity"},
	})

	legend := ds.BuildLegend("Pop_2015")
	require.Len(t, legend.Circles, 3)
	assert.Equal(t, 400000.0, legend.Circles[0].Value, "infinite values never become the max")
	assert.Equal(t, 100000.0, legend.Circles[2].Value)

	_, err := json.Marshal(legend)
	assert.NoError(t, err)
}
