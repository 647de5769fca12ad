package peaks

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSegments is the number of time slices used by SegmentedTopN
const DefaultSegments = 10

// Strategy reduces the qualifying peaks of one series to the ones kept.
// Implementations return peaks sorted descending by magnitude, ties in
// chronological order. topN <= 0 keeps every selected peak.
type Strategy interface {
	Select(peaks []Peak, totalDuration float64, topN int) []Peak
	Name() string
}

// GlobalTopN keeps the strongest peaks regardless of where they are
type GlobalTopN struct{}

func (GlobalTopN) Name() string { return "global" }

// Select sorts every peak descending and keeps the first topN
func (GlobalTopN) Select(peaks []Peak, _ float64, topN int) []Peak {
	out := make([]Peak, len(peaks))
	copy(out, peaks)
	sortByMagnitude(out)
	return limit(out, topN)
}

// SegmentedTopN splits [0, totalDuration) into equal half-open segments,
// keeps the strongest peak of each, then the topN strongest winners.
// Highlights end up spread across the whole recording.
type SegmentedTopN struct {
	Segments int
}

func (SegmentedTopN) Name() string { return "segmented" }

// Select picks at most one peak per segment
func (s SegmentedTopN) Select(peaks []Peak, totalDuration float64, topN int) []Peak {
	segments := s.Segments
	if segments <= 0 {
		segments = DefaultSegments
	}
	width := totalDuration / float64(segments)

	winners := make([]Peak, 0, segments)
	for i := 0; i < segments; i++ {
		start := float64(i) * width
		end := float64(i+1) * width

		var best Peak
		found := false
		for _, p := range peaks {
			if p.Time < start || p.Time >= end {
				continue
			}
			// first peak wins a tie
			if !found || p.Magnitude > best.Magnitude {
				best = p
				found = true
			}
		}
		if found {
			winners = append(winners, best)
		}
	}

	sortByMagnitude(winners)
	return limit(winners, topN)
}

// StrategyByName returns the strategy for "global" or "segmented".
// segments only applies to the segmented strategy.
func StrategyByName(name string, segments int) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "global":
		return GlobalTopN{}, nil
	case "", "segmented":
		return SegmentedTopN{Segments: segments}, nil
	default:
		return nil, fmt.Errorf("unknown peak selection %q (want global or segmented)", name)
	}
}

func sortByMagnitude(peaks []Peak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
}

func limit(peaks []Peak, topN int) []Peak {
	if topN > 0 && len(peaks) > topN {
		return peaks[:topN]
	}
	return peaks
}
