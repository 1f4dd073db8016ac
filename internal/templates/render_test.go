package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFragments(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	html, err := r.Render("legend", map[string]any{
		"Heading": "Population in 2015",
		"Fill":    "#006FFF", "FillOpacity": 0.5, "Stroke": "#000",
		"Circles": []map[string]any{
			{"Key": "max", "CX": 60, "CY": 108.72, "Radius": 11.28, "TextY": 50, "Label": "400000 People"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Population in 2015")
	assert.Contains(t, html, `id="max"`)
	assert.Contains(t, html, "400000 People")

	html, err = r.Render("sequence", map[string]any{"ID": "abc", "Steps": 7})
	require.NoError(t, err)
	assert.Contains(t, html, `max="6"`)
	assert.Contains(t, html, "/api/v1/viewer/sessions/abc/forward")
}

func TestLegendWithoutCircles(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	html, err := r.Render("legend", map[string]any{"Heading": "Population in "})
	require.NoError(t, err)
	assert.Contains(t, html, "No data")
}

func TestDirOverrideAndReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(`{{define "hello"}}hi {{.}}{{end}}`), 0o644))

	r, err := New(dir)
	require.NoError(t, err)
	out, err := r.Render("hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(`{{define "hello"}}bye {{.}}{{end}}`), 0o644))
	require.NoError(t, r.Reload(dir))
	out, err = r.Render("hello", "now")
	require.NoError(t, err)
	assert.Equal(t, "bye now", out)

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}
