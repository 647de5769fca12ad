package clips

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MinClipDuration is the shortest interval, in seconds, worth extracting.
// Clamped intervals at or below it are dropped.
const MinClipDuration = 0.1

// Interval is a time window in seconds
type Interval struct {
	Start float64
	End   float64
}

// Duration returns End-Start in seconds
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Length returns the interval length as a time.Duration
func (iv Interval) Length() time.Duration {
	return Seconds(iv.Duration())
}

// StartOffset returns the start as a time.Duration
func (iv Interval) StartOffset() time.Duration {
	return Seconds(iv.Start)
}

// TooShort reports whether the interval is at or below MinClipDuration
func (iv Interval) TooShort() bool {
	return iv.Duration() <= MinClipDuration
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%.3f, %.3f]", iv.Start, iv.End)
}

// Seconds converts fractional seconds to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// PlanIntervals builds [max(p-before, 0), p+after] around every peak time
// and merges the result. The end is not clamped here; that needs the real
// media duration and happens at extraction.
func PlanIntervals(peakTimes []float64, before, after float64) []Interval {
	raw := make([]Interval, len(peakTimes))
	for i, p := range peakTimes {
		raw[i] = Interval{Start: math.Max(p-before, 0), End: p + after}
	}
	return MergeIntervals(raw)
}

// MergeIntervals returns the sorted, pairwise disjoint union of in.
// Intervals that overlap or touch are merged. in is not modified.
func MergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}

	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sortByStart(sorted)

	merged := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= cur.End {
			cur.End = math.Max(cur.End, next.End)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// Clamp limits iv to [0, duration]
func Clamp(iv Interval, duration float64) Interval {
	out := Interval{
		Start: math.Max(iv.Start, 0),
		End:   math.Min(iv.End, duration),
	}
	if out.Start > duration {
		out.Start = duration
	}
	return out
}

// sortByStart orders intervals ascending by start, stable for equal starts
func sortByStart(in []Interval) {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Start < in[j].Start
	})
}
