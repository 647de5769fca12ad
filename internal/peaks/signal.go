package peaks

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
)

// ErrInvalidSignalKind is returned for a kind other than acceleration or rotation
var ErrInvalidSignalKind = errors.New("invalid signal kind")

// Kind selects the derived signal peaks are searched in
type Kind string

const (
	// Acceleration searches braking spikes (-ax)
	Acceleration Kind = "acceleration"
	// Rotation searches spikes in total rotation rate
	Rotation Kind = "rotation"
)

// ParseKind maps a config or flag value to a Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Acceleration, Rotation:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (want acceleration or rotation)", ErrInvalidSignalKind, s)
	}
}

// Label is the axis label used when the signal is plotted
func (k Kind) Label() string {
	switch k {
	case Acceleration:
		return "Braking force (-ax, g)"
	case Rotation:
		return "Total rotation (deg/s)"
	default:
		return string(k)
	}
}

// Signal derives the per-sample signal for kind and its peak threshold.
//
// acceleration: signal is -ax, threshold is -P5(ax).
// rotation: signal is the rotation magnitude, threshold is P95(signal).
func Signal(s *telemetry.Series, kind Kind) ([]float64, float64, error) {
	n := s.Len()
	signal := make([]float64, n)

	switch kind {
	case Acceleration:
		ax := make([]float64, n)
		for i, sample := range s.Samples {
			ax[i] = sample.Accel.X
			signal[i] = sample.BrakingForce()
		}
		return signal, -Percentile(ax, 5), nil

	case Rotation:
		for i, sample := range s.Samples {
			signal[i] = sample.RotationMagnitude()
		}
		return signal, Percentile(signal, 95), nil

	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidSignalKind, string(kind))
	}
}

// Percentile returns the p-th percentile of values using linear
// interpolation between the closest ranks, rank = p/100*(n-1).
// values is not modified. NaN is returned for an empty slice.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= n {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
