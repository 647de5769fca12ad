package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Wait blocks until a known camera is attached or ctx is done. A camera that
// is already present is returned immediately.
func (d *Detector) Wait(ctx context.Context) (*Device, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// watch before the first scan so an attach in between is not missed
	if err := watcher.Add(d.byLabelDir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", d.byLabelDir, err)
	}

	if dev, err := d.Detect(); !errors.Is(err, ErrNoCamera) {
		return dev, err
	}

	d.logger.Info().Str("dir", d.byLabelDir).Msg("waiting for camera")

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil, ErrNoCamera
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			d.logger.Debug().Str("event", event.String()).Msg("by-label change")
			dev, err := d.Detect()
			if errors.Is(err, ErrNoCamera) {
				continue
			}
			return dev, err

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, ErrNoCamera
			}
			d.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
