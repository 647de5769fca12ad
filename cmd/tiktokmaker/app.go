package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/LucachuTW/TikTok-maker/internal/camera"
	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/ffmpeg"
	"github.com/LucachuTW/TikTok-maker/internal/gyroflow"
	"github.com/LucachuTW/TikTok-maker/internal/logging"
	"github.com/LucachuTW/TikTok-maker/internal/metrics"
	"github.com/LucachuTW/TikTok-maker/internal/pipeline"
	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// app bundles the collaborators built from config for one command
type app struct {
	pipe    *pipeline.Pipeline
	metrics *metrics.Metrics
}

func ffmpegOptions(cfg *config.Config) ffmpeg.Options {
	return ffmpeg.Options{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		Threads:    cfg.FFmpeg.Threads,
		Preset:     cfg.FFmpeg.Preset,
		CRF:        cfg.FFmpeg.CRF,
	}
}

func newApp(cfg *config.Config) (*app, error) {
	exec, err := ffmpeg.New(log.Logger, ffmpegOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	pcfg := pipeline.Config{
		Gyroflow: cfg.Gyroflow,
		Metrics:  metrics.New(),
	}

	// gyroflow is optional; only stabilization needs it
	runner, err := gyroflow.New(log.Logger, cfg.Gyroflow.BinaryPath)
	if err != nil {
		log.Debug().Err(err).Msg("gyroflow unavailable")
	} else {
		pcfg.Stabilizer = runner
	}

	return &app{
		pipe:    pipeline.New(log.Logger, exec, pcfg),
		metrics: pcfg.Metrics,
	}, nil
}

func (a *app) writeMetrics(cfg *config.Config) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Msg("failed to write metrics")
	}
}

// downloadFromCamera detects, mounts, copies from and unmounts the camera
func downloadFromCamera(cmd *cobra.Command, cfg *config.Config, wait bool) (camera.DownloadStats, error) {
	ctx := cmd.Context()
	logger := logging.WithComponent("camera").With().Str(logging.EventField, logging.EventCamera).Logger()

	detector := camera.NewDetector(logger, cfg.Camera)
	var (
		dev *camera.Device
		err error
	)
	if wait {
		dev, err = detector.Wait(ctx)
	} else {
		dev, err = detector.Detect()
	}
	if err != nil {
		return camera.DownloadStats{}, err
	}
	logger.Info().Str("model", dev.Model).Msg("camera found")

	mounter := camera.NewMounter(logger, nil)
	if err := mounter.Mount(ctx, dev, cfg.Camera.MountPoint); err != nil {
		return camera.DownloadStats{}, err
	}

	stats, dlErr := camera.Download(ctx, cfg.Camera.MountPoint, cfg.CameraPath)
	log.Info().
		Str(logging.EventField, logging.EventDownload).
		Int("copied", stats.Copied).
		Int("skipped", stats.Skipped).
		Int64("bytes", stats.Bytes).
		Msg("camera download finished")

	if err := mounter.Unmount(ctx, cfg.Camera.MountPoint); err != nil {
		return stats, errors.Join(dlErr, err)
	}
	return stats, dlErr
}

func listVideos(root string) ([]string, error) {
	videos, err := util.ListVideos(root, pipeline.ClipsDir, pipeline.AudioDir)
	if err != nil {
		return nil, fmt.Errorf("list videos in %s: %w", root, err)
	}
	return videos, nil
}

// videosFromArgs expands directories to the videos below them. No arguments
// means every video under camera_path.
func videosFromArgs(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return listVideos(cfg.CameraPath)
	}

	var videos []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			videos = append(videos, arg)
			continue
		}
		found, err := listVideos(arg)
		if err != nil {
			return nil, err
		}
		videos = append(videos, found...)
	}
	return videos, nil
}

func addHighlightFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("kind", "", "signal to search: acceleration or rotation")
	f.Int("top-n", 0, "peaks to keep (0 or less keeps every peak)")
	f.String("selection", "", "peak selection: segmented or global")
	f.Int("segments", 0, "time segments for segmented selection")
	f.Float64("before", 0, "seconds kept before each peak")
	f.Float64("after", 0, "seconds kept after each peak")
	f.String("on-bad-row", "", "malformed telemetry rows: abort or skip")
}

// applyHighlightFlags overrides the highlights config with the flags that
// were set on the command line
func applyHighlightFlags(cmd *cobra.Command, h *config.HighlightsConfig) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Lookup(name) != nil && f.Changed(name) {
			err = apply()
		}
	}

	set("kind", func() (e error) { h.Kind, e = f.GetString("kind"); return })
	set("top-n", func() (e error) { h.TopN, e = f.GetInt("top-n"); return })
	set("selection", func() (e error) { h.Selection, e = f.GetString("selection"); return })
	set("segments", func() (e error) { h.Segments, e = f.GetInt("segments"); return })
	set("before", func() (e error) { h.Before, e = f.GetFloat64("before"); return })
	set("after", func() (e error) { h.After, e = f.GetFloat64("after"); return })
	set("on-bad-row", func() (e error) { h.OnBadRow, e = f.GetString("on-bad-row"); return })
	set("join", func() (e error) { h.Join, e = f.GetBool("join"); return })
	set("compress", func() (e error) { h.Compress, e = f.GetBool("compress"); return })
	set("plot", func() (e error) { h.Plot, e = f.GetBool("plot"); return })
	return err
}

func printResults(cmd *cobra.Command, results []pipeline.Result) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "%-12s %s", r.Status(), r.Video)
		if r.Err != nil {
			fmt.Fprintf(out, " (%v)", r.Err)
		}
		fmt.Fprintln(out)
		for _, o := range r.Outputs {
			fmt.Fprintf(out, "             -> %s\n", o)
		}
	}
}
