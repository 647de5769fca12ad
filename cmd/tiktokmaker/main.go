package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/logging"
	"github.com/LucachuTW/TikTok-maker/internal/logstore"
)

var (
	cfgFile   string
	verbose   bool
	logCloser io.Closer
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tiktokmaker",
	Short: "tiktokmaker - action camera highlight generator",
	Long: "Downloads footage from an action camera, extracts audio, stabilizes with gyroflow " +
		"and cuts highlight clips around the hardest braking or rotation in the gyro log.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Initialize logging
		closer, err := logging.Init(cfg.Logs, verbose)
		if err != nil {
			return err
		}
		logCloser = closer

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(highlightsCmd)
	rootCmd.AddCommand(peaksCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(stabilizeCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(interpolateCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the most recent entries of the SQLite log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if cfg.Logs.SQLiteFile == "" {
			return errors.New("logs.sqlite_file is not configured")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := logstore.Open(cfg.Logs.SQLiteFile)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			fmt.Fprintf(out, "%s  %-5s  %-14s  %-12s  %s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.EventType, e.LoggerName, e.Message)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("default config written")
		return nil
	},
}

func init() {
	logsCmd.Flags().Int("limit", 50, "number of entries to show")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
