// Package hotfolder watches a directory for incoming order XML files and
// feeds them into the import pipeline.
package hotfolder

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ImportFunc is called with the path and contents of an order document
// once its file has settled.
type ImportFunc func(ctx context.Context, path string, data []byte)

// settleDelay debounces Create/Write bursts: order files are often written
// in several chunks by the producing application, and importing a half
// written document would fail the whole order.
const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root and processes .xml file events
// until ctx is cancelled. Each file is imported once its write activity has
// been quiet for settleDelay. The hot folder is flat: subdirectories are
// ignored.
func Watch(ctx context.Context, root string, logger *slog.Logger, importFn ImportFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("hotfolder: started", slog.String("root", root))

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Reset(settleDelay)
			return
		}
		pending[path] = time.AfterFunc(settleDelay, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				logger.Warn("hotfolder: read failed",
					slog.String("path", path), slog.String("error", readErr.Error()))
				return
			}
			logger.Info("hotfolder: importing", slog.String("path", path))
			importFn(ctx, path, data)
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, timer := range pending {
				timer.Stop()
			}
			mu.Unlock()
			logger.Info("hotfolder: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".xml") {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("hotfolder: error", slog.String("error", watchErr.Error()))
		}
	}
}
