package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch evicts a source when its file changes and reloads the catalog when
// the catalog file changes. Directories are watched so that editors that
// replace files by rename are seen. Watch returns once the watches are
// registered; events are handled until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	watched := map[string]struct{}{}
	if err := s.addDirs(w, watched); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				s.handle(ctx, w, watched, ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.WarnContext(ctx, "source watcher error", "err", err)
			}
		}
	}()
	return nil
}

func (s *Store) addDirs(w *fsnotify.Watcher, watched map[string]struct{}) error {
	dirs := []string{filepath.Dir(filepath.Clean(s.catalogPath))}
	s.mu.RLock()
	for _, e := range s.entries {
		dirs = append(dirs, filepath.Dir(e.Path))
	}
	s.mu.RUnlock()

	for _, d := range dirs {
		if _, ok := watched[d]; ok {
			continue
		}
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
		watched[d] = struct{}{}
	}
	return nil
}

func (s *Store) handle(ctx context.Context, w *fsnotify.Watcher, watched map[string]struct{}, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Clean(ev.Name)

	if name == filepath.Clean(s.catalogPath) {
		if err := s.Reload(); err != nil {
			s.log.WarnContext(ctx, "catalog reload failed; keeping previous catalog", "path", name, "err", err)
			return
		}
		if err := s.addDirs(w, watched); err != nil {
			s.log.WarnContext(ctx, "watch new source directories", "err", err)
		}
		s.log.InfoContext(ctx, "catalog reloaded", "path", name, "sources", len(s.IDs()))
		return
	}

	s.mu.RLock()
	var ids []string
	for id, e := range s.entries {
		if e.Path == name {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.Evict(ctx, id)
		s.log.DebugContext(ctx, "source file changed", "source", id, "op", ev.Op.String())
	}
}
