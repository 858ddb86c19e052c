package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference_StandardizesToUnitScale(t *testing.T) {
	scores := []float64{-2.1, -1.8, -1.5, -1.2, -0.9}

	ref, err := NewReference(scores)
	require.NoError(t, err)

	// lz over the reference population has mean 0 and sd 1 by construction.
	var sum, sumSq float64
	for _, s := range scores {
		z := ref.Lz(s)
		sum += z
		sumSq += z * z
	}
	n := float64(len(scores))
	mean := sum / n
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, (sumSq-n*mean*mean)/(n-1), 1e-12)
}

func TestNewReference_RejectsDegenerateInput(t *testing.T) {
	_, err := NewReference([]float64{-1.0})
	assert.Error(t, err, "a single score cannot anchor a distribution")

	_, err = NewReference([]float64{-1.0, -1.0, -1.0})
	assert.Error(t, err, "zero variance makes lz undefined")
}
