package clips

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			name: "overlap",
			in:   []Interval{{1, 3}, {2, 5}, {10, 12}},
			want: []Interval{{1, 5}, {10, 12}},
		},
		{
			name: "touching merges",
			in:   []Interval{{0, 2}, {2, 4}},
			want: []Interval{{0, 4}},
		},
		{
			name: "unsorted input",
			in:   []Interval{{10, 12}, {1, 3}, {2.5, 4}},
			want: []Interval{{1, 4}, {10, 12}},
		},
		{
			name: "contained",
			in:   []Interval{{0, 10}, {2, 3}, {4, 5}},
			want: []Interval{{0, 10}},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeIntervals(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeIntervals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	disjoint := []Interval{{0, 1}, {2, 3}, {5, 8}}
	once := MergeIntervals(disjoint)
	assert.Equal(t, disjoint, once)
	assert.Equal(t, once, MergeIntervals(once))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []Interval{{10, 12}, {1, 3}}
	_ = MergeIntervals(in)
	assert.Equal(t, []Interval{{10, 12}, {1, 3}}, in)
}

func TestPlanIntervalsEndToEnd(t *testing.T) {
	got := PlanIntervals([]float64{2.0, 50.0, 98.0}, 0.5, 1.5)
	want := []Interval{{1.5, 3.5}, {49.5, 51.5}, {97.5, 99.5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PlanIntervals mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanIntervals(t *testing.T) {
	t.Run("start clamped at zero", func(t *testing.T) {
		got := PlanIntervals([]float64{0.2}, 0.5, 1.5)
		assert.Equal(t, []Interval{{0, 1.7}}, got)
	})

	t.Run("end not clamped", func(t *testing.T) {
		got := PlanIntervals([]float64{99.5}, 0.5, 1.5)
		assert.Equal(t, []Interval{{99, 101}}, got)
	})

	t.Run("peaks out of order merge", func(t *testing.T) {
		got := PlanIntervals([]float64{11, 10, 30}, 0.5, 1.5)
		assert.Equal(t, []Interval{{9.5, 12.5}, {29.5, 31.5}}, got)
	})

	t.Run("no peaks", func(t *testing.T) {
		assert.Empty(t, PlanIntervals(nil, 0.5, 1.5))
	})
}

func TestPlanIntervalsDisjointSorted(t *testing.T) {
	peaks := []float64{40, 3, 7, 3.5, 90, 41, 12, 60, 59}
	got := PlanIntervals(peaks, 2, 3)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].End, got[i].Start, "intervals %v and %v overlap", got[i-1], got[i])
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, Interval{97.5, 99}, Clamp(Interval{97.5, 99.5}, 99))
	assert.Equal(t, Interval{0, 2}, Clamp(Interval{-1, 2}, 10))

	past := Clamp(Interval{12, 14}, 10)
	assert.Equal(t, Interval{10, 10}, past)
	assert.True(t, past.TooShort())

	assert.True(t, Clamp(Interval{9.95, 11}, 10).TooShort())
	assert.False(t, Clamp(Interval{9.8, 11}, 10).TooShort())
}

func TestIntervalDurations(t *testing.T) {
	iv := Interval{1.5, 3.5}
	assert.Equal(t, 2.0, iv.Duration())
	assert.Equal(t, 2*time.Second, iv.Length())
	assert.Equal(t, 1500*time.Millisecond, iv.StartOffset())
	assert.Equal(t, "[1.500, 3.500]", iv.String())
}

func TestManager(t *testing.T) {
	m := NewManager()
	a := m.Record("/videos/a.mp4", "/out/a_clip_1.mp4", Interval{1, 3})
	m.Record("/videos/b.mp4", "/out/b_clip_1.mp4", Interval{4, 6})
	m.Record("/videos/a.mp4", "/out/a_clip_2.mp4", Interval{8, 9})

	assert.Equal(t, "a.mp4#1", a.ID)
	assert.Len(t, m.All(), 3)
	assert.Equal(t, "/videos/b.mp4", m.All()[1].Source)
	assert.Equal(t, []string{"/out/a_clip_1.mp4", "/out/b_clip_1.mp4", "/out/a_clip_2.mp4"}, m.Paths())
	assert.Equal(t, 2*time.Second, a.Duration())
}
