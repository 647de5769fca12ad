// Package gyroflow drives the Gyroflow command line renderer to stabilize
// footage with its own gyro log.
package gyroflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// ErrBinaryNotFound is returned when the gyroflow executable cannot be resolved
var ErrBinaryNotFound = errors.New("gyroflow executable not found")

// output lines kept for error reports
const tailLines = 10

// StabilizedSuffix is appended to the video name by gyroflow's default output
const StabilizedSuffix = "_stabilized"

// ExitError reports a non-zero exit from gyroflow
type ExitError struct {
	Code   int
	Output []string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("gyroflow exited with code %d", e.Code)
	if len(e.Output) > 0 {
		msg += ": " + strings.Join(e.Output, " | ")
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Runner executes gyroflow renders
type Runner struct {
	logger zerolog.Logger
	binary string
}

// New resolves binaryPath to an absolute executable. A bare name that is not
// present in the working directory is looked up in PATH.
func New(logger zerolog.Logger, binaryPath string) (*Runner, error) {
	bin, err := resolveBinary(binaryPath)
	if err != nil {
		return nil, err
	}
	return &Runner{
		logger: logger.With().Str("component", "gyroflow").Logger(),
		binary: bin,
	}, nil
}

// Binary returns the resolved executable path
func (r *Runner) Binary() string {
	return r.binary
}

// Args builds the command line for one render:
// <video> <project> -g <gcsv> [-f], all paths absolute.
func Args(video, project, gcsv string, overwrite bool) ([]string, error) {
	inputs := []struct {
		what, path string
	}{
		{"video", video},
		{"project", project},
		{"gyro log", gcsv},
	}

	abs := make([]string, len(inputs))
	for i, in := range inputs {
		if !util.FileExists(in.path) {
			return nil, fmt.Errorf("%s file not found: %s", in.what, in.path)
		}
		p, err := filepath.Abs(in.path)
		if err != nil {
			return nil, fmt.Errorf("%s path %s: %w", in.what, in.path, err)
		}
		abs[i] = p
	}

	args := []string{abs[0], abs[1], "-g", abs[2]}
	if overwrite {
		args = append(args, "-f")
	}
	return args, nil
}

// Stabilize renders video with project settings and the gcsv gyro log.
// Output lines are logged at debug level.
func (r *Runner) Stabilize(ctx context.Context, video, project, gcsv string, overwrite bool) error {
	args, err := Args(video, project, gcsv, overwrite)
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("video", video).
		Str("project", project).
		Str("gcsv", gcsv).
		Bool("overwrite", overwrite).
		Msg("stabilizing video")
	r.logger.Debug().Str("cmd", r.binary).Strs("args", args).Msg("executing gyroflow")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start gyroflow: %w", err)
	}

	tail := newLineTail(tailLines)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.stream(stdout, "stdout", tail)
	}()
	go func() {
		defer wg.Done()
		r.stream(stderr, "stderr", tail)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		exitErr := &ExitError{Code: -1, Output: tail.lines(), Err: err}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitErr.Code = ee.ExitCode()
		}
		return exitErr
	}

	r.logger.Info().Str("video", video).Msg("stabilization complete")
	return nil
}

// StabilizedPath is where gyroflow writes the render of video by default
func StabilizedPath(video string) string {
	return util.ReplaceExt(video, StabilizedSuffix+filepath.Ext(video))
}

func (r *Runner) stream(rd io.Reader, name string, tail *lineTail) {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tail.add(line)
		r.logger.Debug().Str(name, line).Msg("gyroflow output")
	}
}

func resolveBinary(path string) (string, error) {
	if path == "" {
		path = "gyroflow"
	}
	if isExecutable(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		return abs, nil
	}
	found, err := exec.LookPath(filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, path)
	}
	return found, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

// lineTail keeps the last n lines written by both output streams
type lineTail struct {
	mu  sync.Mutex
	n   int
	buf []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{n: n}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line)
	if len(t.buf) > t.n {
		t.buf = t.buf[len(t.buf)-t.n:]
	}
}

func (t *lineTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.buf))
	copy(out, t.buf)
	return out
}
