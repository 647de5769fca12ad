package peaks

import (
	"errors"
	"testing"

	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seriesFrom builds a series sampled every dt seconds
func seriesFrom(dt float64, rot []float64, ax []float64) *telemetry.Series {
	n := len(rot)
	if len(ax) > n {
		n = len(ax)
	}
	s := &telemetry.Series{TimeScale: 1, GyroScale: 1, AccelScale: 1}
	for i := 0; i < n; i++ {
		var sample telemetry.Sample
		sample.Time = float64(i) * dt
		if i < len(rot) {
			sample.Rotation.X = rot[i]
		}
		if i < len(ax) {
			sample.Accel.X = ax[i]
		}
		s.Samples = append(s.Samples, sample)
	}
	return s
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}

	assert.InDelta(t, 9.55, Percentile(values, 95), 1e-9)
	assert.InDelta(t, 5.5, Percentile(values, 50), 1e-9)
	assert.InDelta(t, 1.45, Percentile(values, 5), 1e-9)
	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 10.0, Percentile(values, 100))
	assert.Equal(t, 4.0, Percentile([]float64{4}, 95))

	// input is left untouched
	assert.Equal(t, 10.0, values[0])
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name      string
		signal    []float64
		threshold float64
		want      []int
	}{
		{"single", []float64{0, 1, 0}, 0, []int{1}},
		{"edges never count", []float64{5, 1, 5}, 0, nil},
		{"flat top counts once", []float64{0, 2, 2, 2, 0}, 0, []int{1}},
		{"below threshold", []float64{0, 1, 0, 3, 0}, 2, []int{3}},
		{"at threshold", []float64{0, 2, 0}, 2, []int{1}},
		{"too short", []float64{1, 2}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.signal, tt.threshold)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindPeaks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectRotationPeaks(t *testing.T) {
	rot := make([]float64, 100)
	for i := range rot {
		rot[i] = 1
	}
	rot[20] = 5
	rot[50] = 9
	rot[80] = 7
	s := seriesFrom(0.1, rot, nil)

	for _, strategy := range []Strategy{GlobalTopN{}, SegmentedTopN{}} {
		t.Run(strategy.Name(), func(t *testing.T) {
			got, err := Detect(s, Rotation, 0, strategy)
			require.NoError(t, err)
			require.Len(t, got, 3)

			assert.Equal(t, []float64{9, 7, 5}, []float64{got[0].Magnitude, got[1].Magnitude, got[2].Magnitude})
			assert.InDeltaSlice(t, []float64{5.0, 8.0, 2.0}, Times(got), 1e-9)
		})
	}
}

func TestDetectAccelerationPeaks(t *testing.T) {
	ax := make([]float64, 100)
	ax[10] = -1.5
	ax[40] = -3
	ax[70] = -2
	s := seriesFrom(1, nil, ax)

	signal, threshold, err := Signal(s, Acceleration)
	require.NoError(t, err)
	assert.Equal(t, 3.0, signal[40])
	assert.InDelta(t, 0, threshold, 1e-12)

	got, err := Detect(s, Acceleration, 2, GlobalTopN{})
	require.NoError(t, err)
	want := []Peak{{Time: 40, Magnitude: 3}, {Time: 70, Magnitude: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detect mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectEmptyIsNotAnError(t *testing.T) {
	s := seriesFrom(1, []float64{1, 1, 1, 1}, nil)
	got, err := Detect(s, Rotation, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInvalidKind(t *testing.T) {
	s := seriesFrom(1, []float64{1, 2, 1}, nil)

	_, err := Detect(s, Kind("yaw"), 3, GlobalTopN{})
	assert.True(t, errors.Is(err, ErrInvalidSignalKind))

	_, err = ParseKind("yaw")
	assert.ErrorIs(t, err, ErrInvalidSignalKind)

	k, err := ParseKind(" Rotation ")
	require.NoError(t, err)
	assert.Equal(t, Rotation, k)
}

func TestDetectorLogsAndSelects(t *testing.T) {
	rot := []float64{0, 4, 0, 0, 6, 0, 0, 5, 0, 0}
	s := seriesFrom(1, rot, nil)

	d := NewDetector(zerolog.Nop(), GlobalTopN{})
	got, err := d.Detect(s, Rotation, 0)
	require.NoError(t, err)
	// P95 of the signal sits between 5 and 6
	require.Len(t, got, 1)
	assert.Equal(t, Peak{Time: 4, Magnitude: 6}, got[0])

	_, err = d.Detect(s, Kind("bogus"), 0)
	assert.ErrorIs(t, err, ErrInvalidSignalKind)
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, sum.Mean, 1e-12)
	assert.Equal(t, 2.0, sum.Min)
	assert.Equal(t, 9.0, sum.Max)
	assert.Greater(t, sum.StdDev, 0.0)

	assert.Equal(t, SignalSummary{}, Summarize(nil))
}
