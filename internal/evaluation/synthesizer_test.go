package evaluation

import (
	"math"
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var elapsedPattern = regexp.MustCompile(`^\d+\.\d{2}$`)

func TestSynthesizer_StaysInsideBounds(t *testing.T) {
	s := NewSynthesizer(DefaultRanges)
	rng := rand.New(rand.NewPCG(42, 7))

	for i := 0; i < 5000; i++ {
		m := s.Metrics(rng)
		require.True(t, DefaultRanges.Similarity.Contains(m.Similarity), "similarity %v", m.Similarity)
		require.True(t, DefaultRanges.MeanError.Contains(m.MeanError), "mean error %v", m.MeanError)
		require.True(t, DefaultRanges.PeakSignalRatio.Contains(m.PeakSignalRatio), "psnr %v", m.PeakSignalRatio)
		require.False(t, math.IsNaN(m.Similarity))

		elapsed := s.Elapsed(rng)
		require.Regexp(t, elapsedPattern, elapsed)
	}
}

func TestSynthesizer_DegenerateRange(t *testing.T) {
	ranges := DefaultRanges
	ranges.Similarity = Range{Min: 0.9, Max: 0.9}
	s := NewSynthesizer(ranges)

	m := s.Metrics(rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, 0.9, m.Similarity)
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5, "2.50"},
		{3.999, "4.00"},
		{4, "4.00"},
		{3.14159, "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSeconds(tt.in))
		})
	}
}

func TestRanges_Validate(t *testing.T) {
	require.NoError(t, DefaultRanges.Validate())

	inverted := DefaultRanges
	inverted.MeanError = Range{Min: 0.08, Max: 0.05}
	assert.ErrorContains(t, inverted.Validate(), "mean_error")

	nan := DefaultRanges
	nan.PeakSignalRatio = Range{Min: math.NaN(), Max: 30}
	assert.ErrorContains(t, nan.Validate(), "peak_signal_ratio")

	negative := DefaultRanges
	negative.ElapsedSeconds = Range{Min: -1, Max: 2}
	assert.ErrorContains(t, negative.Validate(), "elapsed_seconds")
}
