package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a rule file into a Provider whenever it changes on disk.
// A file that fails to parse is logged and the previous rules stay active.
type Watcher struct {
	logger   *zap.SugaredLogger
	provider *Provider
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

func NewWatcher(logger *zap.SugaredLogger, provider *Provider, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		logger:   logger,
		provider: provider,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		watcher:  fw,
	}, nil
}

// Start watches the directory holding the rule file, since editors and
// config-map mounts usually replace the file instead of writing in place.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	timer := time.NewTimer(0)
	<-timer.C

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer timer.Stop()
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if w.relevant(event) {
					timer.Reset(w.debounce)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Errorw("rules watcher error", "error", err)
			case <-timer.C:
				w.reload()
			case <-ctx.Done():
				return
			}
		}
	}()

	w.logger.Infow("watching rule file", "path", w.path)
	return nil
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// mountDataLink is the symlink a config-map volume swaps atomically on update.
// The mounted file itself never produces an event.
const mountDataLink = "..data"

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	switch {
	case name == w.path:
		return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
	case name == filepath.Join(filepath.Dir(w.path), mountDataLink):
		return event.Op&fsnotify.Create != 0
	default:
		return false
	}
}

func (w *Watcher) reload() {
	rs, err := LoadFile(w.path)
	if err != nil {
		w.logger.Errorw("keeping previous rules, reload failed", "path", w.path, "error", err)
		return
	}
	w.provider.Set(rs)
	w.logger.Infow("rules reloaded",
		"path", w.path,
		"completion_phrases", len(rs.CompletionPhrases),
		"severe", len(rs.Moderation.Severe),
		"violation", len(rs.Moderation.Violation),
		"warning", len(rs.Moderation.Warning),
	)
}
