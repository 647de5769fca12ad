package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/LucachuTW/TikTok-maker/internal/camera"
	"github.com/LucachuTW/TikTok-maker/internal/clips"
	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/ffmpeg"
	"github.com/LucachuTW/TikTok-maker/internal/peaks"
	"github.com/LucachuTW/TikTok-maker/internal/pipeline"
	"github.com/LucachuTW/TikTok-maker/internal/plot"
	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download from the camera, then extract audio, stabilize and cut highlights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		interactive, _ := cmd.Flags().GetBool("interactive")
		wait, _ := cmd.Flags().GetBool("wait")

		stats, err := downloadFromCamera(cmd, cfg, wait)
		switch {
		case errors.Is(err, camera.ErrNoCamera):
			log.Warn().Msg("no camera attached, processing files already downloaded")
		case err != nil:
			return err
		default:
			log.Info().Int("copied", stats.Copied).Int("skipped", stats.Skipped).Msg("download complete")
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.writeMetrics(cfg)

		videos, err := listVideos(cfg.CameraPath)
		if err != nil {
			return err
		}

		log.Info().Int("videos", len(videos)).Msg("extracting audio from downloaded videos")
		if _, err := app.pipe.ExtractAudio(ctx, videos); err != nil {
			return err
		}

		// shared so the second prompt sees input buffered by the first
		stdin := bufio.NewReader(cmd.InOrStdin())

		toStabilize := videos
		if interactive {
			toStabilize, err = pipeline.Choose(stdin, cmd.OutOrStdout(), videos, "Select videos to stabilize:")
			if err != nil {
				return err
			}
		}
		if len(toStabilize) > 0 && cfg.Gyroflow.Project != "" {
			if _, err := app.pipe.Stabilize(ctx, toStabilize); err != nil {
				log.Warn().Err(err).Msg("stabilization unavailable")
			}
		}

		toClip, err := listVideos(cfg.CameraPath)
		if err != nil {
			return err
		}
		if interactive {
			toClip, err = pipeline.Choose(stdin, cmd.OutOrStdout(), toClip, "Select videos to clip:")
			if err != nil {
				return err
			}
		}

		opts, err := pipeline.OptionsFromConfig(cfg.Highlights)
		if err != nil {
			return err
		}
		results := app.pipe.ProcessBatch(ctx, toClip, opts)
		printResults(cmd, results)
		return ctx.Err()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Mount the camera and copy new footage and gyro logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		wait, _ := cmd.Flags().GetBool("wait")

		stats, err := downloadFromCamera(cmd, cfg, wait)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d files (%d bytes), %d already present\n", stats.Copied, stats.Bytes, stats.Skipped)
		return nil
	},
}

var highlightsCmd = &cobra.Command{
	Use:   "highlights [videos or directories...]",
	Short: "Cut highlight clips around telemetry peaks",
	Long:  "Cuts highlight clips for each video with a .gcsv gyro log beside it. Without arguments every video under camera_path is processed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		if err := applyHighlightFlags(cmd, &cfg.Highlights); err != nil {
			return err
		}
		opts, err := pipeline.OptionsFromConfig(cfg.Highlights)
		if err != nil {
			return err
		}
		opts.OutputDir, _ = cmd.Flags().GetString("output")

		videos, err := videosFromArgs(cfg, args)
		if err != nil {
			return err
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.writeMetrics(cfg)

		results := app.pipe.ProcessBatch(ctx, videos, opts)
		printResults(cmd, results)
		return ctx.Err()
	},
}

var peaksCmd = &cobra.Command{
	Use:   "peaks <gcsv>",
	Short: "Print the peaks and clip intervals found in a gyro log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := applyHighlightFlags(cmd, &cfg.Highlights); err != nil {
			return err
		}
		opts, err := pipeline.OptionsFromConfig(cfg.Highlights)
		if err != nil {
			return err
		}

		series, err := telemetry.ParseFile(args[0], telemetry.Options{OnBadRow: opts.OnBadRow})
		if err != nil {
			return err
		}
		selected, err := peaks.NewDetector(log.Logger, opts.Strategy).Detect(series, opts.Kind, opts.TopN)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d samples, %s, %s peaks (%s)\n",
			series.Len(), util.FormatDuration(clips.Seconds(series.Duration())), opts.Kind, opts.Strategy.Name())
		for i, p := range selected {
			fmt.Fprintf(out, "%3d  t=%9.3fs  %s=%.3f\n", i+1, p.Time, opts.Kind, p.Magnitude)
		}
		for i, iv := range clips.PlanIntervals(peaks.Times(selected), opts.Before, opts.After) {
			fmt.Fprintf(out, "clip %d  %s\n", i+1, iv)
		}
		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot <gcsv>",
	Short: "Plot a gyro log and its peaks to PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := applyHighlightFlags(cmd, &cfg.Highlights); err != nil {
			return err
		}
		opts, err := pipeline.OptionsFromConfig(cfg.Highlights)
		if err != nil {
			return err
		}

		series, err := telemetry.ParseFile(args[0], telemetry.Options{OnBadRow: opts.OnBadRow})
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = filepath.Dir(args[0])
		}
		base := util.BaseName(args[0])

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			path := filepath.Join(outDir, base+"_raw.png")
			if err := plot.Raw(path, series); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}

		selected, err := peaks.NewDetector(log.Logger, opts.Strategy).Detect(series, opts.Kind, opts.TopN)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%s_peaks.png", base, opts.Kind))
		if err := plot.Signal(path, series, opts.Kind, selected); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var audioCmd = &cobra.Command{
	Use:   "audio [videos or directories...]",
	Short: "Extract a WAV track from each video into an audio/ folder beside it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		videos, err := videosFromArgs(cfg, args)
		if err != nil {
			return err
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.writeMetrics(cfg)

		outputs, err := app.pipe.ExtractAudio(cmd.Context(), videos)
		for _, out := range outputs {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return err
	},
}

var stabilizeCmd = &cobra.Command{
	Use:   "stabilize [videos or directories...]",
	Short: "Stabilize videos with gyroflow using their gyro logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if project, _ := cmd.Flags().GetString("project"); project != "" {
			cfg.Gyroflow.Project = project
		}
		if cmd.Flags().Changed("overwrite") {
			cfg.Gyroflow.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		}

		videos, err := videosFromArgs(cfg, args)
		if err != nil {
			return err
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.writeMetrics(cfg)

		outputs, err := app.pipe.Stabilize(cmd.Context(), videos)
		for _, out := range outputs {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return err
	},
}

var interpolateCmd = &cobra.Command{
	Use:   "interpolate <gcsv> <video> <out.csv>",
	Short: "Resample a gyro log at every frame of its video",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		policy, err := telemetry.ParseBadRowPolicy(cfg.Highlights.OnBadRow)
		if err != nil {
			return err
		}

		series, err := telemetry.ParseFile(args[0], telemetry.Options{OnBadRow: policy})
		if err != nil {
			return err
		}

		exec, err := ffmpeg.New(log.Logger, ffmpegOptions(cfg))
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		frames, err := telemetry.InterpolateFrames(series, info.FPS, info.FrameCount)
		if err != nil {
			return err
		}
		if err := util.EnsureDir(filepath.Dir(args[2])); err != nil {
			return err
		}
		f, err := os.Create(args[2])
		if err != nil {
			return err
		}
		if err := telemetry.WriteFramesCSV(f, frames); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		log.Info().
			Str("output", args[2]).
			Int("frames", len(frames)).
			Float64("fps", info.FPS).
			Msg("telemetry interpolated")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolP("interactive", "i", false, "choose videos to stabilize and clip by index")
	runCmd.Flags().Bool("wait", false, "wait for the camera to be attached")
	downloadCmd.Flags().Bool("wait", false, "wait for the camera to be attached")

	for _, c := range []*cobra.Command{highlightsCmd, peaksCmd, plotCmd} {
		addHighlightFlags(c)
	}
	highlightsCmd.Flags().StringP("output", "o", "", "output directory (default: clips/ beside each video)")
	highlightsCmd.Flags().Bool("join", true, "also join the clips of each video into one file")
	highlightsCmd.Flags().Bool("compress", false, "cut from a downscaled proxy")
	highlightsCmd.Flags().Bool("plot", false, "write a peak plot beside the clips")

	plotCmd.Flags().StringP("output", "o", "", "output directory (default: beside the gyro log)")
	plotCmd.Flags().Bool("raw", false, "also plot the raw gyro and accelerometer channels")

	stabilizeCmd.Flags().String("project", "", "gyroflow project file (default: gyroflow.project)")
	stabilizeCmd.Flags().BoolP("overwrite", "f", false, "overwrite existing renders")
}
