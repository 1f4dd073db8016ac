package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/propmap/internal/logger/loggertest"
)

func TestLegendTable(t *testing.T) {
	opts := &Options{DataDir: "../../internal/geodata/testdata"}
	ds, err := loadDataset(context.Background(), opts, "texas-msa", loggertest.New(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	writeLegendTable(&buf, ds)
	out := buf.String()

	assert.Contains(t, out, "ATTRIBUTE")
	assert.Contains(t, out, "Pop_2015")
	assert.Contains(t, out, "400000")
	assert.Contains(t, out, "Pop_2010")
	assert.Contains(t, out, "190000")
}

func TestLegendUnknownPreset(t *testing.T) {
	opts := &Options{DataDir: "../../internal/geodata/testdata"}
	_, err := loadDataset(context.Background(), opts, "nope", loggertest.New(t))
	assert.Error(t, err)
}

func TestLegendTableRadii(t *testing.T) {
	opts := &Options{DataDir: "../../internal/geodata/testdata"}
	ds, err := loadDataset(context.Background(), opts, "texas-msa", loggertest.New(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	writeLegendTable(&buf, ds)
	assert.Contains(t, buf.String(), "400000 (r=11.28)")
}
