package peaks

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusteredPeaks() []Peak {
	peaks := []Peak{
		{Time: 5, Magnitude: 100},
		{Time: 6, Magnitude: 90},
		{Time: 7, Magnitude: 80},
	}
	for seg := 1; seg < 10; seg++ {
		peaks = append(peaks, Peak{Time: float64(seg*100 + 5), Magnitude: 10})
	}
	return peaks
}

func TestSegmentedTopNDistinctSegments(t *testing.T) {
	got := SegmentedTopN{Segments: 10}.Select(clusteredPeaks(), 1000, 5)
	require.Len(t, got, 5)

	seen := map[int]bool{}
	for _, p := range got {
		seg := int(math.Floor(p.Time / 100))
		assert.False(t, seen[seg], "segment %d selected twice", seg)
		seen[seg] = true
	}

	// equal winners keep chronological order
	want := []Peak{
		{Time: 5, Magnitude: 100},
		{Time: 105, Magnitude: 10},
		{Time: 205, Magnitude: 10},
		{Time: 305, Magnitude: 10},
		{Time: 405, Magnitude: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalTopNClusters(t *testing.T) {
	got := GlobalTopN{}.Select(clusteredPeaks(), 1000, 3)
	assert.Equal(t, []float64{5, 6, 7}, Times(got))
}

func TestTopNZeroKeepsAll(t *testing.T) {
	assert.Len(t, GlobalTopN{}.Select(clusteredPeaks(), 1000, 0), 12)
	assert.Len(t, SegmentedTopN{}.Select(clusteredPeaks(), 1000, -1), 10)
}

func TestSegmentedHalfOpen(t *testing.T) {
	peaks := []Peak{
		{Time: 10, Magnitude: 1}, // boundary belongs to the second segment
		{Time: 12, Magnitude: 3},
		{Time: 9.99, Magnitude: 2},
		{Time: 20, Magnitude: 9}, // equals total duration, outside every segment
	}
	got := SegmentedTopN{Segments: 2}.Select(peaks, 20, 0)
	want := []Peak{{Time: 12, Magnitude: 3}, {Time: 9.99, Magnitude: 2}}
	assert.Equal(t, want, got)
}

func TestSegmentedTieKeepsFirst(t *testing.T) {
	peaks := []Peak{{Time: 1, Magnitude: 4}, {Time: 2, Magnitude: 4}}
	got := SegmentedTopN{Segments: 1}.Select(peaks, 10, 0)
	assert.Equal(t, []Peak{{Time: 1, Magnitude: 4}}, got)
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	in := []Peak{{Time: 1, Magnitude: 1}, {Time: 2, Magnitude: 2}}
	_ = GlobalTopN{}.Select(in, 10, 0)
	assert.Equal(t, 1.0, in[0].Time)
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("global", 0)
	require.NoError(t, err)
	assert.Equal(t, "global", s.Name())

	s, err = StrategyByName("", 4)
	require.NoError(t, err)
	assert.Equal(t, SegmentedTopN{Segments: 4}, s)

	_, err = StrategyByName("random", 0)
	assert.Error(t, err)
}
