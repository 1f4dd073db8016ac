// Package geodata fetches and decodes the GeoJSON layers a map preset
// points at. Sources are files under <data-dir>/sources or http(s) URLs.
package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/propmap/internal/propsym"
)

// maxDocumentSize caps a single GeoJSON download.
const maxDocumentSize = 64 << 20

// Layer is one decoded GeoJSON document.
type Layer struct {
	Source     string
	Collection *geojson.FeatureCollection
	// Keys are the first feature's property keys in document order.
	Keys []string
}

// Pair is the result of loading a point layer and an optional polygon
// layer. A failed fetch leaves its layer nil and records the error.
type Pair struct {
	Points      *Layer
	Polygons    *Layer
	PointsErr   error
	PolygonsErr error
}

// Loader reads GeoJSON sources.
type Loader struct {
	sourcesDir string
	client     *http.Client
	log        *zap.SugaredLogger
}

// NewLoader creates a loader rooted at <dataDir>/sources.
func NewLoader(dataDir string, log *zap.SugaredLogger) *Loader {
	return &Loader{
		sourcesDir: filepath.Join(dataDir, "sources"),
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// SourcesDir returns the directory relative sources resolve against.
func (l *Loader) SourcesDir() string {
	return l.sourcesDir
}

// Fetch reads and decodes one source.
func (l *Loader) Fetch(ctx context.Context, source string) (*Layer, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	layer, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	layer.Source = source
	l.log.Debugw("loaded layer", "source", source, "features", len(layer.Collection.Features))
	return layer, nil
}

// FetchPair loads both layers concurrently. Neither fetch waits on or
// cancels the other; polygons may be empty to skip the overlay.
func (l *Loader) FetchPair(ctx context.Context, points, polygons string) Pair {
	var (
		pair Pair
		g    errgroup.Group
	)

	g.Go(func() error {
		pair.Points, pair.PointsErr = l.Fetch(ctx, points)
		if pair.PointsErr != nil {
			l.log.Warnw("point layer unavailable", "source", points, "err", pair.PointsErr)
		}
		return nil
	})

	if polygons != "" {
		g.Go(func() error {
			pair.Polygons, pair.PolygonsErr = l.Fetch(ctx, polygons)
			if pair.PolygonsErr != nil {
				l.log.Warnw("polygon layer unavailable", "source", polygons, "err", pair.PolygonsErr)
			}
			return nil
		})
	}

	_ = g.Wait()
	return pair
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.download(ctx, source)
	}

	if source == "" || filepath.IsAbs(source) || strings.Contains(source, "..") {
		return nil, fmt.Errorf("invalid source path %q", source)
	}
	data, err := os.ReadFile(filepath.Join(l.sourcesDir, source))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

// Decode parses a FeatureCollection and records the first feature's
// property key order.
func Decode(data []byte) (*Layer, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Features []struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	layer := &Layer{Collection: fc}
	if len(raw.Features) > 0 && len(raw.Features[0].Properties) > 0 {
		keys, err := propsym.OrderedKeys(raw.Features[0].Properties)
		if err != nil {
			return nil, fmt.Errorf("first feature properties: %w", err)
		}
		layer.Keys = keys
	}
	return layer, nil
}

// FirstProperties returns the first feature's properties, or nil.
func (l *Layer) FirstProperties() map[string]any {
	if l == nil || l.Collection == nil || len(l.Collection.Features) == 0 {
		return nil
	}
	return l.Collection.Features[0].Properties
}
