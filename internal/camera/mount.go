package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// CommandRunner runs a system command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Mounter attaches camera volumes with the system mount and umount tools
type Mounter struct {
	logger zerolog.Logger
	runner CommandRunner
}

// NewMounter creates a Mounter. A nil runner uses ExecRunner.
func NewMounter(logger zerolog.Logger, runner CommandRunner) *Mounter {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Mounter{
		logger: logger.With().Str("component", "camera").Logger(),
		runner: runner,
	}
}

// Mount mounts dev at mountPoint, creating the directory if needed
func (m *Mounter) Mount(ctx context.Context, dev *Device, mountPoint string) error {
	if err := os.MkdirAll(mountPoint, 0755); err != nil {
		return fmt.Errorf("create mount point: %w", err)
	}
	if err := m.run(ctx, "mount", dev.Node, mountPoint); err != nil {
		return fmt.Errorf("mount %s: %w", dev.Node, err)
	}
	m.logger.Info().Str("device", dev.Node).Str("mount_point", mountPoint).Msg("camera mounted")
	return nil
}

// Unmount detaches whatever is mounted at mountPoint
func (m *Mounter) Unmount(ctx context.Context, mountPoint string) error {
	if err := m.run(ctx, "umount", mountPoint); err != nil {
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}
	m.logger.Info().Str("mount_point", mountPoint).Msg("camera unmounted")
	return nil
}

func (m *Mounter) run(ctx context.Context, name string, args ...string) error {
	m.logger.Debug().Str("cmd", name).Strs("args", args).Msg("executing")
	out, err := m.runner.Run(ctx, name, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
