package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LucachuTW/TikTok-maker/internal/clips"
	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/ffmpeg"
	"github.com/LucachuTW/TikTok-maker/internal/metrics"
	"github.com/LucachuTW/TikTok-maker/internal/peaks"
	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// ErrNoTelemetry marks a video without a gyro log next to it. Such videos are
// skipped, not failed.
var ErrNoTelemetry = errors.New("no telemetry for video")

// Generated output directories, next to each video
const (
	ClipsDir = "clips"
	AudioDir = "audio"
)

// VideoTool cuts and joins clips. *ffmpeg.Executor implements it.
type VideoTool interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// MediaTool adds the whole-file operations used around highlight generation
type MediaTool interface {
	VideoTool
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat, progressFunc ffmpeg.ProgressFunc) error
	Compress(ctx context.Context, input, output string, opts ffmpeg.CompressOptions) error
}

// Stabilizer renders a stabilized copy of a video. *gyroflow.Runner implements it.
type Stabilizer interface {
	Stabilize(ctx context.Context, video, project, gcsv string, overwrite bool) error
}

// Result is the outcome of highlight generation for one video
type Result struct {
	RunID     string
	Video     string
	Telemetry string
	Peaks     []peaks.Peak
	Intervals []clips.Interval
	Outputs   []string // sub-clips in order, then the joined file if any
	Plot      string
	Skipped   bool
	Err       error
	Elapsed   time.Duration
}

// Status is the metrics result label for r
func (r *Result) Status() string {
	switch {
	case errors.Is(r.Err, ErrNoTelemetry):
		return metrics.ResultNoTelemetry
	case r.Err != nil:
		return metrics.ResultFailed
	case r.Skipped:
		return metrics.ResultSkipped
	default:
		return metrics.ResultOK
	}
}

// HighlightOptions configures highlight generation
type HighlightOptions struct {
	Kind     peaks.Kind
	TopN     int // <= 0 keeps every peak
	Strategy peaks.Strategy
	Before   float64 // seconds kept before each peak
	After    float64 // seconds kept after each peak
	Join     bool
	OnBadRow telemetry.BadRowPolicy

	// OutputDir receives clips; empty means <video dir>/clips
	OutputDir string

	// Compress re-encodes a small proxy first and cuts from it
	Compress        bool
	CompressOptions ffmpeg.CompressOptions

	// Plot writes <base>_<kind>_peaks.png into the output directory
	Plot bool
}

// OptionsFromConfig builds HighlightOptions from the highlights section
func OptionsFromConfig(cfg config.HighlightsConfig) (HighlightOptions, error) {
	kind, err := peaks.ParseKind(cfg.Kind)
	if err != nil {
		return HighlightOptions{}, err
	}
	strategy, err := peaks.StrategyByName(cfg.Selection, cfg.Segments)
	if err != nil {
		return HighlightOptions{}, err
	}
	policy, err := telemetry.ParseBadRowPolicy(cfg.OnBadRow)
	if err != nil {
		return HighlightOptions{}, err
	}

	compress := ffmpeg.DefaultCompressOptions()
	if cfg.CompressWidth > 0 {
		compress.Width = cfg.CompressWidth
	}
	if cfg.CompressCRF > 0 {
		compress.CRF = cfg.CompressCRF
	}

	return HighlightOptions{
		Kind:            kind,
		TopN:            cfg.TopN,
		Strategy:        strategy,
		Before:          cfg.Before,
		After:           cfg.After,
		Join:            cfg.Join,
		OnBadRow:        policy,
		Compress:        cfg.Compress,
		CompressOptions: compress,
		Plot:            cfg.Plot,
	}, nil
}

func (o HighlightOptions) validate() error {
	if o.Before < 0 || o.After < 0 {
		return fmt.Errorf("before and after must not be negative")
	}
	if _, err := peaks.ParseKind(string(o.Kind)); err != nil {
		return err
	}
	return nil
}

// TelemetryPathFor returns where the gyro log of video is expected
func TelemetryPathFor(video string) string {
	return util.ReplaceExt(video, ".gcsv")
}
