package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedTelemetry is the sentinel wrapped by every parse failure
var ErrMalformedTelemetry = errors.New("malformed telemetry")

// MalformedError describes why a GCSV file was rejected
type MalformedError struct {
	Path   string
	Line   int // 1-based, 0 when the failure is not tied to a line
	Reason string
}

func (e *MalformedError) Error() string {
	var b strings.Builder
	b.WriteString("malformed telemetry")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedTelemetry
}

// Vec3 is a three-axis reading
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the euclidean length
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Scale multiplies every axis by k
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Sample is one scaled telemetry reading
type Sample struct {
	Time     float64 // seconds
	Rotation Vec3    // degrees
	Accel    Vec3    // g
}

// RotationMagnitude returns the total rotation rate
func (s Sample) RotationMagnitude() float64 {
	return s.Rotation.Norm()
}

// BrakingForce returns -ax so deceleration shows as a positive excursion
func (s Sample) BrakingForce() float64 {
	return -s.Accel.X
}

// Series is a parsed GCSV log. It is built once by the parser and must not
// be modified afterwards.
type Series struct {
	VideoName  string
	TimeScale  float64
	GyroScale  float64
	AccelScale float64
	Samples    []Sample

	// SkippedRows counts data rows dropped under SkipBadRow
	SkippedRows int
}

// Len returns the number of samples
func (s *Series) Len() int {
	return len(s.Samples)
}

// Duration returns the timestamp of the last sample in seconds
func (s *Series) Duration() float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	return s.Samples[len(s.Samples)-1].Time
}

// Times returns the sample timestamps in file order
func (s *Series) Times() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		out[i] = sample.Time
	}
	return out
}
