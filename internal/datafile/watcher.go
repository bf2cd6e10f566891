package datafile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/debounce"
)

// DefaultDebounce absorbs the several events an editor or a copy produces for one save.
const DefaultDebounce = 500 * time.Millisecond

type WatcherOptions struct {
	Clock    clockwork.Clock
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher re-imports the stations file after it changes. A file that fails to
// load is logged and the previous import stays in place.
type Watcher struct {
	path     string
	importer Importer
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	reload   *debounce.Debouncer
}

// NewWatcher watches the directory holding path, since editors and deploys
// often replace the file rather than write to it.
func NewWatcher(path string, importer Importer, opts WatcherOptions) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		importer: importer,
		logger:   opts.Logger.With("component", "datafile", "path", abs),
		watcher:  fw,
	}
	w.reload = debounce.New(opts.Clock, opts.Debounce, w.importNow)
	return w, nil
}

// Run handles file events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.reload.Stop()
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("close file watcher", "error", err)
		}
	}()
	w.logger.Info("watching stations file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.logger.Debug("stations file changed", "op", event.Op.String())
				w.reload.Trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	// A replace by rename shows up as Create of the target path.
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) importNow() {
	res, err := ImportFile(w.path, w.importer)
	if err != nil {
		w.logger.Error("stations reload failed", "error", err)
		return
	}
	w.logger.Info("stations reloaded", "upserted", res.Upserted, "removed", res.Removed)
}
