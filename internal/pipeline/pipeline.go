package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LucachuTW/TikTok-maker/internal/clips"
	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/ffmpeg"
	"github.com/LucachuTW/TikTok-maker/internal/gyroflow"
	"github.com/LucachuTW/TikTok-maker/internal/logging"
	"github.com/LucachuTW/TikTok-maker/internal/metrics"
	"github.com/LucachuTW/TikTok-maker/internal/peaks"
	"github.com/LucachuTW/TikTok-maker/internal/plot"
	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// Config holds pipeline collaborators and settings. Only the media tool
// passed to New is required.
type Config struct {
	Gyroflow   config.GyroflowConfig
	Stabilizer Stabilizer
	Metrics    *metrics.Metrics
}

// Pipeline turns downloaded rides into audio tracks, stabilized renders and
// highlight clips
type Pipeline struct {
	logger     zerolog.Logger
	runID      string
	media      MediaTool
	extractor  *Extractor
	stabilizer Stabilizer
	gyroflow   config.GyroflowConfig
	metrics    *metrics.Metrics
	clips      *clips.Manager
}

// New creates a new pipeline instance. Every log line carries the run ID.
func New(logger zerolog.Logger, media MediaTool, cfg Config) *Pipeline {
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()

	return &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		runID:      runID,
		media:      media,
		extractor:  NewExtractor(logger, media),
		stabilizer: cfg.Stabilizer,
		gyroflow:   cfg.Gyroflow,
		metrics:    cfg.Metrics,
		clips:      clips.NewManager(),
	}
}

// RunID identifies this pipeline's batch in logs and results
func (p *Pipeline) RunID() string {
	return p.runID
}

// Clips returns every clip written so far
func (p *Pipeline) Clips() []*clips.Clip {
	return p.clips.All()
}

// Highlights generates highlight clips for one video from its gyro log.
// A missing log returns ErrNoTelemetry; zero peaks is a skip, not an error.
func (p *Pipeline) Highlights(ctx context.Context, videoPath string, opts HighlightOptions) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:     p.runID,
		Video:     videoPath,
		Telemetry: TelemetryPathFor(videoPath),
	}
	done := func(err error) (*Result, error) {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res, err
	}

	if err := opts.validate(); err != nil {
		return done(err)
	}
	if !util.FileExists(res.Telemetry) {
		return done(fmt.Errorf("%w: %s", ErrNoTelemetry, res.Telemetry))
	}

	logger := p.logger.With().Str("video", videoPath).Logger()
	logger.Info().
		Str(logging.EventField, logging.EventHighlights).
		Str("telemetry", res.Telemetry).
		Str("kind", string(opts.Kind)).
		Int("top_n", opts.TopN).
		Msg("generating highlights")

	series, err := telemetry.ParseFile(res.Telemetry, telemetry.Options{OnBadRow: opts.OnBadRow})
	if err != nil {
		return done(err)
	}
	if series.SkippedRows > 0 {
		logger.Warn().
			Str(logging.EventField, logging.EventBadTelemetry).
			Int("skipped_rows", series.SkippedRows).
			Msg("bad telemetry rows skipped")
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(videoPath), ClipsDir)
	}
	base := util.BaseName(videoPath)

	source := videoPath
	if opts.Compress {
		proxy := filepath.Join(outputDir, "compressed_"+base+".mp4")
		if err := util.EnsureDir(outputDir); err != nil {
			return done(fmt.Errorf("create output dir: %w", err))
		}
		if err := p.media.Compress(ctx, videoPath, proxy, opts.CompressOptions); err != nil {
			return done(err)
		}
		source = proxy
	}

	selected, err := peaks.NewDetector(logger, opts.Strategy).Detect(series, opts.Kind, opts.TopN)
	if err != nil {
		return done(err)
	}
	res.Peaks = selected

	if opts.Plot {
		res.Plot = p.plotPeaks(logger, outputDir, base, series, opts.Kind, selected)
	}

	if len(selected) == 0 {
		logger.Info().Msg("no peaks above threshold, nothing to clip")
		res.Skipped = true
		return done(nil)
	}

	res.Intervals = clips.PlanIntervals(peaks.Times(selected), opts.Before, opts.After)
	logger.Debug().
		Floats64("peak_times", peaks.Times(selected)).
		Int("intervals", len(res.Intervals)).
		Msg("intervals planned")

	written, err := p.extractor.extract(ctx, source, base, res.Intervals, outputDir, opts.Join)
	for _, w := range written {
		clip := p.clips.Record(videoPath, w.path, w.interval)
		clip.Joined = w.joined
	}
	res.Outputs = paths(written)
	if err != nil {
		return done(err)
	}

	logger.Info().
		Str(logging.EventField, logging.EventHighlights).
		Int("peaks", len(selected)).
		Int("outputs", len(res.Outputs)).
		Dur("elapsed", time.Since(start)).
		Msg("highlights complete")
	return done(nil)
}

func (p *Pipeline) plotPeaks(logger zerolog.Logger, dir, base string, s *telemetry.Series, kind peaks.Kind, selected []peaks.Peak) string {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_peaks.png", base, kind))
	if err := plot.Signal(path, s, kind, selected); err != nil {
		logger.Warn().Err(err).Str("plot", path).Msg("peak plot failed")
		return ""
	}
	return path
}

// ProcessBatch runs Highlights for every video in order. Failures are
// recorded on the video's Result and logged; the batch stops early only
// when ctx is done.
func (p *Pipeline) ProcessBatch(ctx context.Context, videos []string, opts HighlightOptions) []Result {
	results := make([]Result, 0, len(videos))

	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			p.logger.Warn().Err(err).Int("remaining", len(videos)-len(results)).Msg("batch cancelled")
			break
		}

		res, err := p.Highlights(ctx, video, opts)
		switch {
		case errors.Is(err, ErrNoTelemetry):
			p.logger.Info().Str("video", video).Msg("skipped: no telemetry")
		case errors.Is(err, telemetry.ErrMalformedTelemetry):
			p.logger.Error().
				Str(logging.EventField, logging.EventBadTelemetry).
				Str("video", video).
				Err(err).
				Msg("skipped: malformed telemetry")
		case err != nil:
			p.logger.Error().Str("video", video).Err(err).Msg("highlight generation failed")
		}

		if p.metrics != nil {
			p.metrics.ObserveVideo(res.Status(), len(res.Peaks), len(res.Outputs), res.Elapsed)
		}
		results = append(results, *res)
	}

	written := p.clips.Paths()
	p.logger.Info().
		Int("videos", len(videos)).
		Int("processed", len(results)).
		Int("clips", len(written)).
		Msg("batch complete")
	p.logger.Debug().Strs("clips", written).Msg("batch outputs")
	return results
}

// AudioPathFor is where the WAV track of video is written
func AudioPathFor(video string) string {
	return filepath.Join(filepath.Dir(video), AudioDir, util.BaseName(video)+".wav")
}

// ExtractAudio writes a 16-bit PCM WAV track for each video. Per-file
// failures are logged and skipped; only cancellation returns an error.
func (p *Pipeline) ExtractAudio(ctx context.Context, videos []string) ([]string, error) {
	var outputs []string
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		out := AudioPathFor(video)
		logger := p.logger.With().Str(logging.EventField, logging.EventAudio).Str("video", video).Logger()

		err := util.EnsureDir(filepath.Dir(out))
		if err == nil {
			err = p.media.ExtractAudio(ctx, video, out, ffmpeg.DefaultWAVFormat(), nil)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outputs, ctxErr
			}
			logger.Error().Err(err).Msg("audio extraction failed")
			p.count(func(m *metrics.Metrics) { m.AudioExtracted.WithLabelValues(metrics.ResultFailed).Inc() })
			continue
		}

		logger.Info().Str("output", out).Msg("audio extracted")
		p.count(func(m *metrics.Metrics) { m.AudioExtracted.WithLabelValues(metrics.ResultOK).Inc() })
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// Stabilize renders each video through gyroflow with its gyro log and the
// configured project. Videos without a log are skipped.
func (p *Pipeline) Stabilize(ctx context.Context, videos []string) ([]string, error) {
	if p.stabilizer == nil {
		return nil, fmt.Errorf("gyroflow is not available")
	}
	if p.gyroflow.Project == "" {
		return nil, fmt.Errorf("gyroflow.project is not configured")
	}

	var outputs []string
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		logger := p.logger.With().Str(logging.EventField, logging.EventStabilize).Str("video", video).Logger()
		gcsv := TelemetryPathFor(video)
		if !util.FileExists(gcsv) {
			logger.Warn().Str("telemetry", gcsv).Msg("skipped: no telemetry")
			p.count(func(m *metrics.Metrics) { m.Stabilizations.WithLabelValues(metrics.ResultNoTelemetry).Inc() })
			continue
		}

		if err := p.stabilizer.Stabilize(ctx, video, p.gyroflow.Project, gcsv, p.gyroflow.Overwrite); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outputs, ctxErr
			}
			logger.Error().Err(err).Msg("stabilization failed")
			p.count(func(m *metrics.Metrics) { m.Stabilizations.WithLabelValues(metrics.ResultFailed).Inc() })
			continue
		}

		p.count(func(m *metrics.Metrics) { m.Stabilizations.WithLabelValues(metrics.ResultOK).Inc() })
		outputs = append(outputs, gyroflow.StabilizedPath(video))
	}
	return outputs, nil
}

func (p *Pipeline) count(f func(*metrics.Metrics)) {
	if p.metrics != nil {
		f(p.metrics)
	}
}
