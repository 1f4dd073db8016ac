// Package service contains the proportional-symbol map pipeline: dataset
// loading per preset, symbol and legend rendering, and the per-client map
// sessions that drive the temporal sequence.
package service

import (
	"time"

	"github.com/joeblew999/propmap/internal/config"
)

// Marker is one rendered proportional symbol.
// Value and Radius are 0 with Valid=false when the attribute is not numeric.
type Marker struct {
	ID        string  `json:"id" doc:"Feature identifier" example:"f0"`
	Name      string  `json:"name" doc:"Feature NAME property" example:"Austin-Round Rock"`
	Lat       float64 `json:"lat" doc:"Latitude"`
	Lng       float64 `json:"lng" doc:"Longitude"`
	Attribute string  `json:"attribute" doc:"Attribute the marker is sized by" example:"Pop_2015"`
	Value     float64 `json:"value" doc:"Attribute value"`
	Radius    float64 `json:"radius" doc:"Circle radius in pixels"`
	Valid     bool    `json:"valid" doc:"Whether value and radius are finite"`
	Popup     Popup   `json:"popup" doc:"Popup bound to the marker"`
}

// Popup is the marker popup content and anchor offset.
type Popup struct {
	Content string  `json:"content" doc:"Popup HTML"`
	OffsetY float64 `json:"offsetY" doc:"Vertical offset (negative radius)"`
}

// Legend is the temporal legend for the active attribute.
type Legend struct {
	Attribute string         `json:"attribute" doc:"Active attribute" example:"Pop_2015"`
	Year      string         `json:"year" doc:"Year token of the attribute" example:"2015"`
	Heading   string         `json:"heading" doc:"Legend heading" example:"Population in 2015"`
	Valid     bool           `json:"valid" doc:"Whether any numeric value was found"`
	Circles   []LegendCircle `json:"circles" doc:"Reference circles: max, mean, min"`
}

// LegendCircle is one reference circle with its SVG geometry.
type LegendCircle struct {
	Key    string  `json:"key" enum:"max,mean,min" doc:"Circle role"`
	Value  float64 `json:"value" doc:"Value the circle represents"`
	Radius float64 `json:"radius" doc:"Circle radius"`
	CX     float64 `json:"cx" doc:"SVG center x"`
	CY     float64 `json:"cy" doc:"SVG center y"`
	TextY  float64 `json:"textY" doc:"SVG label baseline y"`
	Label  string  `json:"label" doc:"Rounded value label" example:"250000 People"`
}

// OverlayState is the boundary overlay as seen by one session.
type OverlayState struct {
	Label     string       `json:"label" doc:"Layer control label" example:"MSA Boundaries"`
	Available bool         `json:"available" doc:"Whether the polygon layer loaded"`
	Visible   bool         `json:"visible" doc:"Whether the overlay is shown"`
	Style     config.Style `json:"style" doc:"Static polygon style"`
}

// DatasetStatus reports how a preset's layers loaded.
type DatasetStatus struct {
	PointsSource    string    `json:"pointsSource" doc:"Point layer source"`
	PolygonsSource  string    `json:"polygonsSource,omitempty" doc:"Polygon layer source"`
	PointsLoaded    bool      `json:"pointsLoaded" doc:"Whether the point layer loaded"`
	PolygonsLoaded  bool      `json:"polygonsLoaded" doc:"Whether the polygon layer loaded"`
	PointsError     string    `json:"pointsError,omitempty" doc:"Point layer load error"`
	PolygonsError   string    `json:"polygonsError,omitempty" doc:"Polygon layer load error"`
	PointFeatures   int       `json:"pointFeatures" doc:"Number of point features"`
	PolygonFeatures int       `json:"polygonFeatures" doc:"Number of polygon features"`
	LoadedAt        time.Time `json:"loadedAt" doc:"Load time"`
}

// SessionState is a snapshot of one map session.
type SessionState struct {
	ID          string        `json:"id" doc:"Session identifier"`
	Preset      string        `json:"preset" doc:"Preset name" example:"texas-msa"`
	Title       string        `json:"title" doc:"Map title"`
	View        config.View   `json:"view" doc:"Initial map view"`
	Tiles       config.Tiles  `json:"tiles" doc:"Base tile layer"`
	Attributes  []string      `json:"attributes" doc:"Ordered attribute list"`
	Steps       int           `json:"steps" doc:"Number of sequence positions"`
	Index       int           `json:"index" doc:"Current sequence index"`
	Attribute   string        `json:"attribute" doc:"Attribute at the current index"`
	Year        string        `json:"year" doc:"Year token of the current attribute"`
	SymbolStyle config.Style  `json:"symbolStyle" doc:"Marker style"`
	Markers     []Marker      `json:"markers" doc:"Rendered markers"`
	Legend      Legend        `json:"legend" doc:"Temporal legend"`
	Overlay     OverlayState  `json:"overlay" doc:"Boundary overlay"`
	Status      DatasetStatus `json:"status" doc:"Layer load status"`
}

// SourceFile represents a GeoJSON source in the data directory.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"MSA.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}
