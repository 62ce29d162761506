// Package evaluation fabricates the evaluation numbers shown next to the
// predicted frames. Nothing here measures anything: every value is an
// independent uniform draw from a fixed range.
package evaluation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/raphaelgruber/cloudcast/internal/models"
)

// Range is a closed interval of plausible values.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Sample draws uniformly from the range.
func (r Range) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Validate rejects inverted or non-finite ranges.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("range bounds must be finite, got [%v, %v]", r.Min, r.Max)
	}
	if r.Max < r.Min {
		return fmt.Errorf("range max %v is below min %v", r.Max, r.Min)
	}
	return nil
}

// Ranges holds the bounds of every synthesized value.
type Ranges struct {
	Similarity      Range `yaml:"similarity"`
	MeanError       Range `yaml:"mean_error"`
	PeakSignalRatio Range `yaml:"peak_signal_ratio"`
	ElapsedSeconds  Range `yaml:"elapsed_seconds"`
}

// DefaultRanges are the bounds of the first demo variant.
var DefaultRanges = Ranges{
	Similarity:      Range{Min: 0.85, Max: 0.95},
	MeanError:       Range{Min: 0.05, Max: 0.08},
	PeakSignalRatio: Range{Min: 25, Max: 30},
	ElapsedSeconds:  Range{Min: 2.5, Max: 4.0},
}

// Validate checks every range.
func (r Ranges) Validate() error {
	for name, rg := range map[string]Range{
		"similarity":        r.Similarity,
		"mean_error":        r.MeanError,
		"peak_signal_ratio": r.PeakSignalRatio,
		"elapsed_seconds":   r.ElapsedSeconds,
	} {
		if err := rg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if r.ElapsedSeconds.Min < 0 {
		return fmt.Errorf("elapsed_seconds: min must be non-negative, got %v", r.ElapsedSeconds.Min)
	}
	return nil
}

// Synthesizer draws metrics from its ranges.
type Synthesizer struct {
	ranges Ranges
}

// NewSynthesizer creates a synthesizer over the given ranges.
func NewSynthesizer(ranges Ranges) *Synthesizer {
	return &Synthesizer{ranges: ranges}
}

// Metrics draws the similarity, mean-error and peak-signal-ratio triple.
func (s *Synthesizer) Metrics(rng *rand.Rand) models.Metrics {
	return models.Metrics{
		Similarity:      s.ranges.Similarity.Sample(rng),
		MeanError:       s.ranges.MeanError.Sample(rng),
		PeakSignalRatio: s.ranges.PeakSignalRatio.Sample(rng),
	}
}

// Elapsed draws a processing time in seconds, formatted with two decimals.
func (s *Synthesizer) Elapsed(rng *rand.Rand) string {
	return FormatSeconds(s.ranges.ElapsedSeconds.Sample(rng))
}

// FormatSeconds renders seconds with exactly two decimal digits.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
