package ffmpeg

import (
	"context"
	"fmt"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	Codec      string
	SampleRate int // 0 keeps the source rate
	Channels   int // 0 keeps the source layout
	Bitrate    string
}

// DefaultWAVFormat is 16-bit PCM at the source rate and layout
func DefaultWAVFormat() AudioFormat {
	return AudioFormat{Codec: "pcm_s16le"}
}

// ExtractAudio extracts audio stream to a separate file
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, format AudioFormat, progressFunc ProgressFunc) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Msg("extracting audio")

	opts := RunOptions{
		Args:            audioArgs(input, output, format),
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}
	return nil
}

func audioArgs(input, output string, format AudioFormat) []string {
	codec := format.Codec
	if codec == "" {
		codec = DefaultWAVFormat().Codec
	}

	args := []string{
		"-i", input,
		"-vn", // no video
		"-acodec", codec,
	}
	if format.SampleRate > 0 {
		args = append(args, "-ar", fmt.Sprintf("%d", format.SampleRate))
	}
	if format.Channels > 0 {
		args = append(args, "-ac", fmt.Sprintf("%d", format.Channels))
	}
	if format.Bitrate != "" {
		args = append(args, "-b:a", format.Bitrate)
	}

	return append(args, output)
}
