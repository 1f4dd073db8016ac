// Package config loads map presets. A preset is one configuration of the
// proportional-symbol pipeline: its data sources, attribute schema, view
// and styling.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/propmap/internal/propsym"
)

//go:embed presets.yaml
var builtin []byte

// ErrPresetNotFound is returned when a preset name is unknown.
var ErrPresetNotFound = errors.New("preset not found")

// Preset configures one proportional-symbol map.
type Preset struct {
	Name          string   `yaml:"name" json:"name" doc:"Preset identifier" example:"texas-msa"`
	Title         string   `yaml:"title" json:"title" doc:"Map title"`
	Points        string   `yaml:"points" json:"points" doc:"Point GeoJSON source (file under sources/ or http URL)" example:"MSA.geojson"`
	Polygons      string   `yaml:"polygons,omitempty" json:"polygons,omitempty" doc:"Boundary polygon GeoJSON source" example:"MSA_Poly.geojson"`
	PointFilter   string   `yaml:"pointFilter,omitempty" json:"pointFilter" doc:"Substring selecting point attributes" default:"Pop"`
	PolygonFilter string   `yaml:"polygonFilter,omitempty" json:"polygonFilter" doc:"Substring selecting polygon attributes" default:"Perc"`
	Attributes    []string `yaml:"attributes,omitempty" json:"attributes,omitempty" doc:"Explicit ordered attribute schema; discovered when empty"`
	Steps         int      `yaml:"steps,omitempty" json:"steps,omitempty" minimum:"0" doc:"Sequence length; 0 derives it from the attribute list"`
	ScaleFactor   float64  `yaml:"scaleFactor,omitempty" json:"scaleFactor" doc:"Symbol area scale factor" default:"0.001"`
	PopupLabel    string   `yaml:"popupLabel,omitempty" json:"popupLabel" doc:"Label before the feature name in popups" example:"MSA"`
	ValueLabel    string   `yaml:"valueLabel,omitempty" json:"valueLabel" doc:"Label of the mapped value" example:"Population"`
	LegendUnit    string   `yaml:"legendUnit,omitempty" json:"legendUnit" doc:"Unit suffix for legend labels" example:"People"`
	View          View     `yaml:"view" json:"view" doc:"Initial map view"`
	Tiles         Tiles    `yaml:"tiles" json:"tiles" doc:"Base tile layer"`
	Symbol        Style    `yaml:"symbol" json:"symbol" doc:"Proportional symbol style"`
	Overlay       Overlay  `yaml:"overlay,omitempty" json:"overlay" doc:"Boundary overlay"`
}

// View is the initial map center ([lat, lng]) and zoom.
type View struct {
	Center [2]float64 `yaml:"center" json:"center" doc:"Center as [lat, lng]"`
	Zoom   int        `yaml:"zoom" json:"zoom" minimum:"0" maximum:"22" doc:"Zoom level"`
}

// Tiles is the base tile layer.
type Tiles struct {
	URL         string `yaml:"url" json:"url" doc:"Tile URL template"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution" doc:"Attribution HTML"`
}

// Style is a static path style (Leaflet path options).
type Style struct {
	FillColor   string  `yaml:"fillColor" json:"fillColor" doc:"Fill color (CSS)"`
	Color       string  `yaml:"color" json:"color" doc:"Stroke color (CSS)"`
	Weight      float64 `yaml:"weight" json:"weight" doc:"Stroke width"`
	Opacity     float64 `yaml:"opacity" json:"opacity" minimum:"0" maximum:"1" doc:"Stroke opacity"`
	FillOpacity float64 `yaml:"fillOpacity" json:"fillOpacity" minimum:"0" maximum:"1" doc:"Fill opacity"`
}

// Overlay is the boundary layer's control label and style.
type Overlay struct {
	Label string `yaml:"label,omitempty" json:"label" doc:"Layer control label" example:"MSA Boundaries"`
	Style Style  `yaml:"style,omitempty" json:"style" doc:"Polygon style"`
}

// Presets is an ordered preset registry.
type Presets struct {
	order  []string
	byName map[string]Preset
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Load returns the built-in presets merged with those in path.
// An empty path loads only the built-ins.
func Load(path string) (*Presets, error) {
	p := &Presets{byName: map[string]Preset{}}
	if err := p.merge(builtin); err != nil {
		return nil, fmt.Errorf("builtin presets: %w", err)
	}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	if err := p.merge(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse builds a registry from YAML without the built-ins.
func Parse(data []byte) (*Presets, error) {
	p := &Presets{byName: map[string]Preset{}}
	if err := p.merge(data); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Presets) merge(data []byte) error {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for _, preset := range f.Presets {
		preset.applyDefaults()
		if err := preset.Validate(); err != nil {
			return err
		}
		if _, exists := p.byName[preset.Name]; !exists {
			p.order = append(p.order, preset.Name)
		}
		p.byName[preset.Name] = preset
	}
	return nil
}

// Get returns a preset by name.
func (p *Presets) Get(name string) (Preset, error) {
	preset, ok := p.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return preset, nil
}

// List returns presets in definition order.
func (p *Presets) List() []Preset {
	out := make([]Preset, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.byName[name])
	}
	return out
}

// Default returns the first defined preset name.
func (p *Presets) Default() string {
	if len(p.order) == 0 {
		return ""
	}
	return p.order[0]
}

func (p *Preset) applyDefaults() {
	if p.PointFilter == "" {
		p.PointFilter = "Pop"
	}
	if p.PolygonFilter == "" {
		p.PolygonFilter = "Perc"
	}
	if p.ScaleFactor == 0 {
		p.ScaleFactor = propsym.DefaultScaleFactor
	}
	if p.PopupLabel == "" {
		p.PopupLabel = "Name"
	}
	if p.ValueLabel == "" {
		p.ValueLabel = "Population"
	}
	if p.LegendUnit == "" {
		p.LegendUnit = "People"
	}
	if p.Overlay.Label == "" {
		p.Overlay.Label = "Boundaries"
	}
}

// Validate checks the fields a pipeline cannot run without.
func (p Preset) Validate() error {
	if p.Name == "" {
		return errors.New("preset name is required")
	}
	if p.Points == "" {
		return fmt.Errorf("preset %q: points source is required", p.Name)
	}
	if p.Steps < 0 {
		return fmt.Errorf("preset %q: steps must not be negative", p.Name)
	}
	if p.Steps > 0 && len(p.Attributes) > 0 && p.Steps > len(p.Attributes) {
		return fmt.Errorf("preset %q: steps %d exceeds %d attributes", p.Name, p.Steps, len(p.Attributes))
	}
	return nil
}
