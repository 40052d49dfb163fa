package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.CorpusWatcher = (*Watcher)(nil)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 2 * time.Second

// Watcher turns fsnotify events into debounced batches of corpus changes.
type Watcher struct {
	debounce time.Duration
}

// NewWatcher creates a watcher. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{debounce: debounce}
}

// watchSet records what the caller asked to watch.
type watchSet struct {
	roots []string
	files map[string]bool
}

// relevant reports whether path is a watched file or a non-hidden path
// under a watched directory.
func (s *watchSet) relevant(path string) bool {
	if s.files[path] {
		return true
	}
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return !isHidden(rel)
	}
	return false
}

// Watch blocks until ctx is cancelled, calling onChange once per quiet
// period with every change seen since the previous call. Changes to the
// same path are merged; the last one wins.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(context.Context, []domain.CorpusChange)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	set := &watchSet{files: make(map[string]bool)}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("root path error: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("root path error: %w", err)
		}
		if info.IsDir() {
			set.roots = append(set.roots, abs)
			if err := addTree(fw, abs); err != nil {
				return err
			}
			continue
		}
		set.files[abs] = true
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}
	}

	pending := make(map[string]domain.CorpusChange)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			change, ok := toChange(ev)
			if !ok || !set.relevant(ev.Name) {
				continue
			}
			if change.Type == domain.ChangeCreated {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						logger.Warn("Cannot watch new directory %s: %v", ev.Name, err)
					}
				}
			}
			pending[ev.Name] = change
			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-fire:
			fire = nil
			changes := make([]domain.CorpusChange, 0, len(pending))
			for _, c := range pending {
				changes = append(changes, c)
			}
			sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
			pending = make(map[string]domain.CorpusChange)
			onChange(ctx, changes)
		}
	}
}

func toChange(ev fsnotify.Event) (domain.CorpusChange, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return domain.CorpusChange{Type: domain.ChangeCreated, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return domain.CorpusChange{Type: domain.ChangeUpdated, Path: ev.Name}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return domain.CorpusChange{Type: domain.ChangeDeleted, Path: ev.Name}, true
	default:
		return domain.CorpusChange{}, false
	}
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(dir, path); rel != "." && isHidden(rel) {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
