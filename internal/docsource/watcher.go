package docsource

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lexicon/internal/checksum"
)

// settleDelay coalesces the write/rename/chmod storms editors produce.
const settleDelay = 150 * time.Millisecond

// ChangeCallback receives the new content of a watched file.
type ChangeCallback func(data []byte)

// Watch observes the file at path until ctx is cancelled and calls cb with
// its content whenever the checksum differs from the last one seen. The
// parent directory is watched so atomic rename-over saves are caught.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ChangeCallback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	last, err := checksum.File(abs)
	if err != nil {
		logger.Warn("watcher: initial checksum failed", slog.String("path", abs), slog.String("error", err.Error()))
	}
	logger.Info("watcher: started", slog.String("path", abs))

	var settle *time.Timer
	var settleCh <-chan time.Time
	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(settleDelay)
			settleCh = settle.C
		} else {
			settle.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			data, readErr := os.ReadFile(abs)
			if readErr != nil {
				logger.Warn("watcher: read failed", slog.String("path", abs), slog.String("error", readErr.Error()))
				continue
			}
			sum := checksum.Sum(data)
			if sum == last {
				logger.Debug("watcher: content unchanged", slog.String("path", abs))
				continue
			}
			last = sum
			logger.Debug("watcher: content changed", slog.String("path", abs), slog.String("checksum", sum))
			cb(data)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
