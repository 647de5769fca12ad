package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// BadRowPolicy decides what happens to a data row that cannot be parsed
type BadRowPolicy int

const (
	// AbortOnBadRow rejects the whole file
	AbortOnBadRow BadRowPolicy = iota
	// SkipBadRow drops the row and keeps parsing
	SkipBadRow
)

func (p BadRowPolicy) String() string {
	switch p {
	case SkipBadRow:
		return "skip"
	default:
		return "abort"
	}
}

// ParseBadRowPolicy maps the config value ("abort" or "skip") to a policy.
// An empty string selects the default, AbortOnBadRow.
func ParseBadRowPolicy(s string) (BadRowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortOnBadRow, nil
	case "skip":
		return SkipBadRow, nil
	default:
		return AbortOnBadRow, fmt.Errorf("unknown bad row policy %q (want abort or skip)", s)
	}
}

// Options configures the GCSV parser
type Options struct {
	OnBadRow BadRowPolicy
}

// column header that separates metadata from data rows
var dataHeader = []string{"t", "rx", "ry", "rz", "ax", "ay", "az"}

const dataColumns = 7

// ParseFile reads a GCSV file from disk
func ParseFile(path string, opts Options) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("cannot open: %v", err)}
	}
	defer f.Close()

	series, err := Parse(f, opts)
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.Path = path
		}
		return nil, err
	}
	return series, nil
}

// Parse reads a GCSV log: metadata lines, the t,rx,ry,rz,ax,ay,az header,
// then one row of seven raw numbers per sample.
func Parse(r io.Reader, opts Options) (*Series, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	series := &Series{}
	var haveT, haveG, haveA bool
	headerFound := false
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")

		if !headerFound {
			if isDataHeader(fields) {
				if !haveT || !haveG || !haveA {
					return nil, &MalformedError{Line: lineNum, Reason: missingScales(haveT, haveG, haveA)}
				}
				headerFound = true
				continue
			}

			var err error
			switch fields[0] {
			case "videofilename":
				if len(fields) > 1 {
					series.VideoName = strings.TrimSpace(fields[1])
				}
			case "tscale":
				series.TimeScale, err = scaleValue(fields)
				haveT = err == nil
			case "gscale":
				series.GyroScale, err = scaleValue(fields)
				haveG = err == nil
			case "ascale":
				series.AccelScale, err = scaleValue(fields)
				haveA = err == nil
			}
			if err != nil {
				return nil, &MalformedError{Line: lineNum, Reason: fmt.Sprintf("%s: %v", fields[0], err)}
			}
			continue
		}

		sample, err := series.parseRow(fields)
		if err == nil && len(series.Samples) > 0 {
			if prev := series.Samples[len(series.Samples)-1].Time; sample.Time < prev {
				err = fmt.Errorf("column t: %q (%.6f s) goes backwards from %.6f s", strings.TrimSpace(fields[0]), sample.Time, prev)
			}
		}
		if err != nil {
			if opts.OnBadRow == SkipBadRow {
				series.SkippedRows++
				continue
			}
			return nil, &MalformedError{Line: lineNum, Reason: err.Error()}
		}
		series.Samples = append(series.Samples, sample)
	}

	if err := scanner.Err(); err != nil {
		return nil, &MalformedError{Line: lineNum, Reason: fmt.Sprintf("read: %v", err)}
	}
	if !headerFound {
		return nil, &MalformedError{Reason: "data header t,rx,ry,rz,ax,ay,az not found"}
	}
	if len(series.Samples) == 0 {
		return nil, &MalformedError{Reason: "no data rows after header"}
	}
	return series, nil
}

func (s *Series) parseRow(fields []string) (Sample, error) {
	if len(fields) != dataColumns {
		return Sample{}, fmt.Errorf("expected %d columns, got %d", dataColumns, len(fields))
	}

	var raw [dataColumns]float64
	for i, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return Sample{}, fmt.Errorf("column %s: %w", dataHeader[i], err)
		}
		raw[i] = v
	}

	return Sample{
		Time:     raw[0] * s.TimeScale,
		Rotation: Vec3{X: raw[1], Y: raw[2], Z: raw[3]}.Scale(s.GyroScale),
		Accel:    Vec3{X: raw[4], Y: raw[5], Z: raw[6]}.Scale(s.AccelScale),
	}, nil
}

func isDataHeader(fields []string) bool {
	if len(fields) != len(dataHeader) {
		return false
	}
	for i, f := range fields {
		if !strings.EqualFold(strings.TrimSpace(f), dataHeader[i]) {
			return false
		}
	}
	return true
}

func scaleValue(fields []string) (float64, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("missing value")
	}
	return parseNumber(fields[1])
}

// parseNumber accepts finite decimal numbers only. ParseFloat would also
// take NaN, Inf and hex floats, none of which a camera writes.
func parseNumber(field string) (float64, error) {
	f := strings.TrimSpace(field)
	if strings.ContainsAny(f, "xX_") {
		return 0, fmt.Errorf("invalid number %q", f)
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", f)
	}
	return v, nil
}

func missingScales(haveT, haveG, haveA bool) string {
	var missing []string
	if !haveT {
		missing = append(missing, "tscale")
	}
	if !haveG {
		missing = append(missing, "gscale")
	}
	if !haveA {
		missing = append(missing, "ascale")
	}
	return "missing " + strings.Join(missing, ", ") + " before data header"
}
