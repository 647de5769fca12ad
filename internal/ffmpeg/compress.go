package ffmpeg

import (
	"context"
	"fmt"
)

// CompressOptions configures a downscaled re-encode
type CompressOptions struct {
	Width        int // output width, height follows the aspect ratio
	CRF          int
	Preset       string
	KeepAudio    bool
	ProgressFunc ProgressFunc
}

// DefaultCompressOptions matches the lightweight proxy used for highlights
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		Width:  640,
		CRF:    28,
		Preset: "fast",
	}
}

// Compress writes a smaller copy of input to output
func (e *Executor) Compress(ctx context.Context, input, output string, opts CompressOptions) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Int("width", opts.Width).
		Int("crf", opts.CRF).
		Msg("compressing video")

	runOpts := RunOptions{
		Args:            compressArgs(input, output, opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("compression")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	return nil
}

func compressArgs(input, output string, opts CompressOptions) []string {
	args := []string{"-i", input}

	if vf := NewFilterBuilder().ScaleWidth(opts.Width).Build(); vf != "" {
		args = append(args, "-vf", vf)
	}

	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCompressOptions().CRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultCompressOptions().Preset
	}
	args = append(args,
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
	)

	if opts.KeepAudio {
		args = append(args, "-c:a", DefaultAudioCodec)
	} else {
		args = append(args, "-an")
	}

	return append(args, output)
}
