package service

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/joeblew999/propmap/internal/propsym"
)

// Legend SVG geometry: circles share a center line and sit on a common
// baseline; labels are stacked max, mean, min.
const (
	legendCenterX  = 60
	legendBaseline = 120
)

var legendLabelY = map[string]float64{"max": 50, "mean": 80, "min": 110}

var popupTmpl = template.Must(template.New("popup").Parse(
	`<p><b>{{.Label}}:</b> {{.Name}}</p><p><b>{{.ValueLabel}} in {{.Year}}: </b>{{.Value}}</p>`,
))

type popupData struct {
	Label      string
	Name       string
	ValueLabel string
	Year       string
	Value      string
}

// RenderMarkers builds one marker per point feature sized by attr.
func (d *Dataset) RenderMarkers(attr string) []Marker {
	markers := make([]Marker, len(d.Points))
	for i, p := range d.Points {
		markers[i] = Marker{
			ID:   p.ID,
			Name: p.Name,
			Lat:  p.Location.Lat(),
			Lng:  p.Location.Lon(),
		}
		d.resize(&markers[i], p, attr)
	}
	return markers
}

// UpdateMarkers re-sizes markers in place for attr and returns how many
// changed. Markers whose feature lacks attr keep their previous state;
// zero values are applied like any other.
func (d *Dataset) UpdateMarkers(markers []Marker, attr string) int {
	updated := 0
	for i := range markers {
		if i >= len(d.Points) {
			break
		}
		p := d.Points[i]
		if _, ok := p.Properties[attr]; !ok {
			continue
		}
		d.resize(&markers[i], p, attr)
		updated++
	}
	return updated
}

func (d *Dataset) resize(m *Marker, p PointFeature, attr string) {
	value, _ := propsym.Lookup(p.Properties, attr)
	radius := propsym.RadiusScaled(value, d.Preset.ScaleFactor)

	m.Attribute = attr
	m.Valid = propsym.Finite(value) && propsym.Finite(radius)
	if m.Valid {
		m.Value, m.Radius = value, radius
	} else {
		m.Value, m.Radius = 0, 0
	}
	m.Popup = Popup{
		Content: d.popupContent(p, attr),
		OffsetY: -m.Radius,
	}
}

func (d *Dataset) popupContent(p PointFeature, attr string) string {
	var buf bytes.Buffer
	raw, ok := p.Properties[attr]
	value := "undefined"
	if ok {
		value = propsym.Format(raw)
	}
	// Execute only fails on a broken template, which Must rules out.
	_ = popupTmpl.Execute(&buf, popupData{
		Label:      d.Preset.PopupLabel,
		Name:       p.Name,
		ValueLabel: d.Preset.ValueLabel,
		Year:       propsym.Year(attr),
		Value:      value,
	})
	return buf.String()
}

// BuildLegend computes the max/mean/min reference circles for attr over
// every point feature. Values that are missing, not numeric or infinite
// are skipped so the legend always encodes as JSON.
func (d *Dataset) BuildLegend(attr string) Legend {
	year := propsym.Year(attr)
	legend := Legend{
		Attribute: attr,
		Year:      year,
		Heading:   fmt.Sprintf("%s in %s", d.Preset.ValueLabel, year),
		Circles:   []LegendCircle{},
	}

	values := make([]float64, 0, len(d.Points))
	for _, p := range d.Points {
		v, _ := propsym.Lookup(p.Properties, attr)
		if math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}

	ext, ok := propsym.ComputeExtent(values)
	if !ok {
		return legend
	}
	legend.Valid = true

	for _, c := range []struct {
		key   string
		value float64
	}{
		{"max", ext.Max},
		{"mean", ext.Mean},
		{"min", ext.Min},
	} {
		r := propsym.RadiusScaled(c.value, d.Preset.ScaleFactor)
		if !propsym.Finite(r) {
			r = 0
		}
		legend.Circles = append(legend.Circles, LegendCircle{
			Key:    c.key,
			Value:  c.value,
			Radius: r,
			CX:     legendCenterX,
			CY:     legendBaseline - r,
			TextY:  legendLabelY[c.key],
			Label:  fmt.Sprintf("%.0f %s", math.Floor(c.value+0.5), d.Preset.LegendUnit),
		})
	}
	return legend
}
