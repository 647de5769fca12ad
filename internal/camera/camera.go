// Package camera finds an action camera's storage, mounts it and pulls
// footage and gyro logs off it.
package camera

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LucachuTW/TikTok-maker/internal/config"
)

// ErrNoCamera is returned when no known camera volume is attached
var ErrNoCamera = errors.New("no camera detected")

// Device is an attached camera volume
type Device struct {
	Label string // filesystem label
	Model string
	Path  string // entry in the by-label directory
	Node  string // block device the entry points at
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s on %s)", d.Model, d.Label, d.Node)
}

// Detector matches volume labels against the configured camera models
type Detector struct {
	logger     zerolog.Logger
	byLabelDir string
	known      map[string]string
}

// NewDetector creates a detector for cfg.KnownDevices under cfg.ByLabelDir
func NewDetector(logger zerolog.Logger, cfg config.CameraConfig) *Detector {
	dir := cfg.ByLabelDir
	if dir == "" {
		dir = "/dev/disk/by-label"
	}
	return &Detector{
		logger:     logger.With().Str("component", "camera").Logger(),
		byLabelDir: dir,
		known:      cfg.KnownDevices,
	}
}

// Dir returns the directory scanned for volume labels
func (d *Detector) Dir() string {
	return d.byLabelDir
}

// Detect returns the first attached known camera in label order
func (d *Detector) Detect() (*Device, error) {
	entries, err := os.ReadDir(d.byLabelDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCamera
		}
		return nil, fmt.Errorf("read %s: %w", d.byLabelDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, label := range names {
		model, ok := d.lookup(label)
		if !ok {
			continue
		}
		dev := &Device{
			Label: label,
			Model: model,
			Path:  filepath.Join(d.byLabelDir, label),
		}
		dev.Node = dev.Path
		if node, err := filepath.EvalSymlinks(dev.Path); err == nil {
			dev.Node = node
		}
		d.logger.Info().
			Str("label", dev.Label).
			Str("model", dev.Model).
			Str("node", dev.Node).
			Msg("camera detected")
		return dev, nil
	}
	return nil, ErrNoCamera
}

// lookup matches a label exactly, then ignoring case
func (d *Detector) lookup(label string) (string, bool) {
	if model, ok := d.known[label]; ok {
		return model, true
	}
	for known, model := range d.known {
		if strings.EqualFold(known, label) {
			return model, true
		}
	}
	return "", false
}
