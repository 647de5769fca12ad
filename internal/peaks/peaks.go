package peaks

import (
	"fmt"

	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Peak is a detected event: the sample time and the signal value there
type Peak struct {
	Time      float64
	Magnitude float64
}

// Times returns the peak timestamps in the order given
func Times(peaks []Peak) []float64 {
	out := make([]float64, len(peaks))
	for i, p := range peaks {
		out[i] = p.Time
	}
	return out
}

// FindPeaks returns the indices of local maxima at or above threshold.
// An interior index i qualifies when x[i] > x[i-1] and x[i] >= x[i+1],
// so a flat top is reported once at its first point.
func FindPeaks(signal []float64, threshold float64) []int {
	var idx []int
	for i := 1; i < len(signal)-1; i++ {
		x := signal[i]
		if x > signal[i-1] && x >= signal[i+1] && x >= threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// Detect finds peaks of kind in s and reduces them with strategy.
// A nil strategy means SegmentedTopN with the default segment count.
// No peaks is a valid result, not an error.
func Detect(s *telemetry.Series, kind Kind, topN int, strategy Strategy) ([]Peak, error) {
	signal, threshold, err := Signal(s, kind)
	if err != nil {
		return nil, err
	}
	return selectPeaks(s, signal, threshold, topN, strategy), nil
}

func selectPeaks(s *telemetry.Series, signal []float64, threshold float64, topN int, strategy Strategy) []Peak {
	if strategy == nil {
		strategy = SegmentedTopN{Segments: DefaultSegments}
	}

	idx := FindPeaks(signal, threshold)
	all := make([]Peak, len(idx))
	for i, j := range idx {
		all[i] = Peak{Time: s.Samples[j].Time, Magnitude: signal[j]}
	}
	return strategy.Select(all, s.Duration(), topN)
}

// Detector runs peak detection with logging
type Detector struct {
	logger   zerolog.Logger
	strategy Strategy
}

// NewDetector creates a detector using strategy for selection
func NewDetector(logger zerolog.Logger, strategy Strategy) *Detector {
	if strategy == nil {
		strategy = SegmentedTopN{Segments: DefaultSegments}
	}
	return &Detector{
		logger:   logger.With().Str("component", "peaks").Logger(),
		strategy: strategy,
	}
}

// Strategy returns the selection strategy in use
func (d *Detector) Strategy() Strategy {
	return d.strategy
}

// Detect finds and selects the top peaks of kind in s
func (d *Detector) Detect(s *telemetry.Series, kind Kind, topN int) ([]Peak, error) {
	signal, threshold, err := Signal(s, kind)
	if err != nil {
		return nil, fmt.Errorf("detect peaks: %w", err)
	}

	summary := Summarize(signal)
	d.logger.Debug().
		Str("kind", string(kind)).
		Int("samples", len(signal)).
		Float64("mean", summary.Mean).
		Float64("std_dev", summary.StdDev).
		Float64("max", summary.Max).
		Float64("threshold", threshold).
		Msg("signal summary")

	selected := selectPeaks(s, signal, threshold, topN, d.strategy)

	d.logger.Info().
		Str("kind", string(kind)).
		Str("selection", d.strategy.Name()).
		Int("top_n", topN).
		Int("selected", len(selected)).
		Msg("peak detection complete")

	return selected, nil
}

// SignalSummary describes a derived signal
type SignalSummary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes basic statistics of signal
func Summarize(signal []float64) SignalSummary {
	if len(signal) == 0 {
		return SignalSummary{}
	}
	mean, std := stat.MeanStdDev(signal, nil)
	return SignalSummary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(signal),
		Max:    floats.Max(signal),
	}
}
