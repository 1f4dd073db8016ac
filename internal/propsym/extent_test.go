package propsym

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeExtent(t *testing.T) {
	ext, ok := ComputeExtent([]float64{100000, 250000, 400000})
	assert.True(t, ok)
	assert.Equal(t, Extent{Min: 100000, Max: 400000, Mean: 250000}, ext)
}

func TestComputeExtentMeanIsMidpoint(t *testing.T) {
	ext, ok := ComputeExtent([]float64{1, 2, 3, 100})
	assert.True(t, ok)
	assert.Equal(t, (100.0+1.0)/2, ext.Mean)
}

func TestComputeExtentSkipsNaN(t *testing.T) {
	ext, ok := ComputeExtent([]float64{math.NaN(), 10, math.NaN(), 30})
	assert.True(t, ok)
	assert.Equal(t, Extent{Min: 10, Max: 30, Mean: 20}, ext)
}

func TestComputeExtentEmpty(t *testing.T) {
	_, ok := ComputeExtent(nil)
	assert.False(t, ok)

	_, ok = ComputeExtent([]float64{math.NaN()})
	assert.False(t, ok)
}

func TestComputeExtentSingleValue(t *testing.T) {
	ext, ok := ComputeExtent([]float64{5})
	assert.True(t, ok)
	assert.Equal(t, Extent{Min: 5, Max: 5, Mean: 5}, ext)
}
