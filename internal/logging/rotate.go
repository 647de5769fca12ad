package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults for the application log file
const (
	DefaultMaxMegabytes = 10
	DefaultBackups      = 5
)

// newFileSink returns a size-rotated writer for path. The directory is
// created up front so a bad path fails Init instead of the first write.
func newFileSink(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxMegabytes,
		MaxBackups: DefaultBackups,
		LocalTime:  true,
	}, nil
}
