package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage(t *testing.T) {
	got, err := Average([]float64{2.0, 4.0})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestAverageSingleValue(t *testing.T) {
	got, err := Average([]float64{7.5})
	require.NoError(t, err)
	assert.Equal(t, 7.5, got)
}

func TestAverageEmpty(t *testing.T) {
	_, err := Average(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no perplexities")
}

func TestSummarize(t *testing.T) {
	got, err := Summarize([]float64{4.0, 1.0, 7.0, 4.0})
	require.NoError(t, err)
	assert.Equal(t, Summary{Count: 4, Mean: 4.0, Min: 1.0, Max: 7.0}, got)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	require.Error(t, err)
}
