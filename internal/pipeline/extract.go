package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/LucachuTW/TikTok-maker/internal/clips"
	"github.com/LucachuTW/TikTok-maker/internal/ffmpeg"
	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// Extractor writes highlight clips for planned intervals
type Extractor struct {
	logger zerolog.Logger
	tool   VideoTool
}

// NewExtractor creates an Extractor on top of tool
func NewExtractor(logger zerolog.Logger, tool VideoTool) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "extractor").Logger(),
		tool:   tool,
	}
}

// ClipPath is the output of the n-th (1-based) interval of a video named base
func ClipPath(outputDir, base string, n int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_clip_%d.mp4", base, n))
}

// JoinedPath is the concatenation of every clip of a video named base
func JoinedPath(outputDir, base string) string {
	return filepath.Join(outputDir, base+"_highlights.mp4")
}

// ExtractClips cuts every interval out of sourceVideo into outputDir.
//
// Intervals are clamped to the media duration first and dropped when
// MinClipDuration or less remains. A clip that fails to cut is logged and
// left out. With join, the clips are also concatenated in order and the
// joined file is appended to the returned paths.
func (x *Extractor) ExtractClips(ctx context.Context, sourceVideo string, intervals []clips.Interval, outputDir string, join bool) ([]string, error) {
	written, err := x.extract(ctx, sourceVideo, util.BaseName(sourceVideo), intervals, outputDir, join)
	return paths(written), err
}

// emitted is a file written by extract and the span of source it covers
type emitted struct {
	path     string
	interval clips.Interval
	joined   bool
}

func paths(written []emitted) []string {
	if len(written) == 0 {
		return nil
	}
	out := make([]string, len(written))
	for i, w := range written {
		out[i] = w.path
	}
	return out
}

// extract names outputs after base rather than the file being cut, so clips
// cut from a compressed proxy keep the original video's name.
func (x *Extractor) extract(ctx context.Context, source, base string, intervals []clips.Interval, outputDir string, join bool) ([]emitted, error) {
	if len(intervals) == 0 {
		return nil, nil
	}

	duration, err := x.tool.ProbeDuration(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", source, err)
	}
	if err := util.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var outputs []emitted
	for i, iv := range intervals {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		clamped := clips.Clamp(iv, duration.Seconds())
		if clamped.TooShort() {
			x.logger.Warn().
				Int("clip", i+1).
				Stringer("interval", iv).
				Float64("duration", clamped.Duration()).
				Msg("clip skipped: duration too short")
			continue
		}

		out := ClipPath(outputDir, base, i+1)
		err := x.tool.ExtractClip(ctx, source, ffmpeg.ClipOptions{
			Start:      clamped.StartOffset(),
			End:        clips.Seconds(clamped.End),
			Output:     out,
			VideoCodec: ffmpeg.DefaultVideoCodec,
			AudioCodec: ffmpeg.DefaultAudioCodec,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outputs, ctxErr
			}
			x.logger.Error().Err(err).Int("clip", i+1).Str("output", out).Msg("clip failed")
			continue
		}
		outputs = append(outputs, emitted{path: out, interval: clamped})
	}

	if !join || len(outputs) == 0 {
		return outputs, nil
	}

	joined := JoinedPath(outputDir, base)
	if err := x.tool.Concat(ctx, ffmpeg.ConcatOptions{Inputs: paths(outputs), Output: joined}); err != nil {
		// a partial joined file would look like a finished one
		util.CleanupFiles(joined)
		return outputs, fmt.Errorf("join highlights: %w", err)
	}
	x.logger.Info().Int("clips", len(outputs)).Str("output", joined).Msg("highlights joined")

	span := clips.Interval{Start: outputs[0].interval.Start, End: outputs[len(outputs)-1].interval.End}
	return append(outputs, emitted{path: joined, interval: span, joined: true}), nil
}
