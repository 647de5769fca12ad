package camera

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/LucachuTW/TikTok-maker/pkg/util"
)

// TelemetryExtension is the gyro log written next to each recording
const TelemetryExtension = ".gcsv"

// DownloadStats summarizes a Download
type DownloadStats struct {
	Copied  int
	Skipped int // already present with the same size
	Bytes   int64
}

// Wanted reports whether path is footage or a gyro log
func Wanted(path string) bool {
	return util.IsVideo(path) || strings.EqualFold(filepath.Ext(path), TelemetryExtension)
}

// Download copies every recording and gyro log under srcRoot into dstRoot,
// preserving relative paths. A destination file of the same size is kept.
func Download(ctx context.Context, srcRoot, dstRoot string) (DownloadStats, error) {
	var stats DownloadStats

	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !Wanted(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstRoot, rel)

		if existing, err := os.Stat(dst); err == nil && existing.Size() == info.Size() {
			stats.Skipped++
			return nil
		}

		n, err := copyFile(path, dst)
		if err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		stats.Copied++
		stats.Bytes += n
		return nil
	})
	return stats, err
}

// copyFile writes src to a temporary name beside dst and renames it into
// place, so an interrupted copy never looks complete.
func copyFile(src, dst string) (int64, error) {
	if err := util.EnsureDir(filepath.Dir(dst)); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}
