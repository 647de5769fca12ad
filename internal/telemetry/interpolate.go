package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// FrameSample holds telemetry resampled at one video frame
type FrameSample struct {
	Frame    int
	Time     float64
	Rotation Vec3
	Accel    Vec3
}

// InterpolateFrames resamples the series at the centre of each video frame,
// (i+0.5)/fps. Frames outside the telemetry range take the boundary sample.
func InterpolateFrames(s *Series, fps float64, frameCount int) ([]FrameSample, error) {
	if fps <= 0 || frameCount <= 0 {
		return nil, fmt.Errorf("invalid video properties: fps=%.3f frames=%d", fps, frameCount)
	}
	if s == nil || len(s.Samples) == 0 {
		return nil, fmt.Errorf("empty telemetry series")
	}

	frames := make([]FrameSample, frameCount)
	for i := range frames {
		t := (float64(i) + 0.5) / fps
		rot, acc := s.At(t)
		frames[i] = FrameSample{Frame: i, Time: t, Rotation: rot, Accel: acc}
	}
	return frames, nil
}

// Covers reports whether [start, end] lies inside the telemetry time range
func (s *Series) Covers(start, end float64) bool {
	if len(s.Samples) == 0 {
		return false
	}
	return start >= s.Samples[0].Time && end <= s.Duration()
}

// At linearly interpolates rotation and acceleration at time t
func (s *Series) At(t float64) (Vec3, Vec3) {
	n := len(s.Samples)
	if t <= s.Samples[0].Time {
		return s.Samples[0].Rotation, s.Samples[0].Accel
	}
	if t >= s.Samples[n-1].Time {
		return s.Samples[n-1].Rotation, s.Samples[n-1].Accel
	}

	// first sample strictly after t
	j := sort.Search(n, func(i int) bool { return s.Samples[i].Time > t })
	a, b := s.Samples[j-1], s.Samples[j]
	span := b.Time - a.Time
	if span <= 0 {
		return a.Rotation, a.Accel
	}
	f := (t - a.Time) / span
	return lerp(a.Rotation, b.Rotation, f), lerp(a.Accel, b.Accel, f)
}

func lerp(a, b Vec3, f float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		Z: a.Z + (b.Z-a.Z)*f,
	}
}

var frameHeader = []string{"frame", "timestamp_sec", "gyro_x", "gyro_y", "gyro_z", "accel_x", "accel_y", "accel_z"}

// WriteFramesCSV writes per-frame telemetry with a header row
func WriteFramesCSV(w io.Writer, frames []FrameSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frameHeader); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, fr := range frames {
		row := []string{
			strconv.Itoa(fr.Frame), f(fr.Time),
			f(fr.Rotation.X), f(fr.Rotation.Y), f(fr.Rotation.Z),
			f(fr.Accel.X), f(fr.Accel.Y), f(fr.Accel.Z),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv write frame %d: %w", fr.Frame, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
