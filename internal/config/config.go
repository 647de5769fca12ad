package config

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// UserPlaceholder in any path is replaced by the current user name
const UserPlaceholder = "[user]"

// Config holds all application configuration
type Config struct {
	// Where camera files are downloaded to and processed from
	CameraPath string `yaml:"camera_path"`

	Camera     CameraConfig     `yaml:"camera"`
	Logs       LogConfig        `yaml:"logs"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Gyroflow   GyroflowConfig   `yaml:"gyroflow"`
	Highlights HighlightsConfig `yaml:"highlights"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type CameraConfig struct {
	MountPoint string `yaml:"mount_point"`
	ByLabelDir string `yaml:"by_label_dir"`
	// filesystem label -> camera model
	KnownDevices map[string]string `yaml:"known_devices"`
}

type LogConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
	Console    bool   `yaml:"console"`
	File       bool   `yaml:"file"`
	SQLite     bool   `yaml:"sqlite"`
	Level      string `yaml:"level"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type GyroflowConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Project    string `yaml:"project"`
	Overwrite  bool   `yaml:"overwrite"`
}

type HighlightsConfig struct {
	Kind          string  `yaml:"kind"`
	TopN          int     `yaml:"top_n"`
	Selection     string  `yaml:"selection"`
	Segments      int     `yaml:"segments"`
	Before        float64 `yaml:"before"`
	After         float64 `yaml:"after"`
	Join          bool    `yaml:"join"`
	OnBadRow      string  `yaml:"on_bad_row"`
	Compress      bool    `yaml:"compress"`
	CompressWidth int     `yaml:"compress_width"`
	CompressCRF   int     `yaml:"compress_crf"`
	Plot          bool    `yaml:"plot"`
}

type MetricsConfig struct {
	// node-exporter textfile written after a batch; empty disables it
	Textfile string `yaml:"textfile"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.ExpandUser(currentUser())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	h := c.Highlights
	if h.Before < 0 || h.After < 0 {
		return fmt.Errorf("highlights.before and highlights.after must not be negative")
	}
	if h.Segments < 0 {
		return fmt.Errorf("highlights.segments must not be negative")
	}
	switch strings.ToLower(h.OnBadRow) {
	case "", "abort", "skip":
	default:
		return fmt.Errorf("highlights.on_bad_row must be abort or skip, got %q", h.OnBadRow)
	}
	if c.FFmpeg.Threads < 0 {
		return fmt.Errorf("ffmpeg.threads must not be negative")
	}
	return nil
}

// ExpandUser replaces UserPlaceholder in every configured path
func (c *Config) ExpandUser(name string) {
	expand := func(p *string) {
		*p = strings.ReplaceAll(*p, UserPlaceholder, name)
	}
	expand(&c.CameraPath)
	expand(&c.Camera.MountPoint)
	expand(&c.Logs.Path)
	expand(&c.Logs.SQLiteFile)
	expand(&c.Gyroflow.BinaryPath)
	expand(&c.Gyroflow.Project)
	expand(&c.Metrics.Textfile)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		CameraPath: "/home/[user]/camera",
		Camera: CameraConfig{
			MountPoint:   "/mnt/camera",
			ByLabelDir:   "/dev/disk/by-label",
			KnownDevices: map[string]string{"RUNCAM6": "RunCam 6"},
		},
		Logs: LogConfig{
			Path:       "/home/[user]/logs/app.log",
			SQLiteFile: "/home/[user]/logs/logs.db",
			Console:    true,
			File:       true,
			SQLite:     false,
			Level:      "info",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
			Preset:     "fast",
			CRF:        23,
		},
		Gyroflow: GyroflowConfig{
			BinaryPath: "./gyroflow",
		},
		Highlights: HighlightsConfig{
			Kind:          "acceleration",
			TopN:          5,
			Selection:     "segmented",
			Segments:      10,
			Before:        0.5,
			After:         1.5,
			Join:          true,
			OnBadRow:      "abort",
			CompressWidth: 640,
			CompressCRF:   28,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config/config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".tiktokmaker", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
