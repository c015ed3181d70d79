package pool

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/pipeline"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// AddWatch watches dir and every directory below it under a single
// handle. A directory may belong to several handles when registered
// roots are nested.
func (p *Pool) AddWatch(dir string) (model.WatchHandle, error) {
	root := filepath.Clean(dir)

	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", root)
	}

	p.nextWatch++
	handle := p.nextWatch
	p.watches[handle] = root

	if err := p.addRecursive(root, handle); err != nil {
		_ = p.dropDirs(handle)
		delete(p.watches, handle)
		return 0, err
	}

	return handle, nil
}

// RemoveWatch stops watching everything registered under handle. A root
// that has already disappeared is not an error.
func (p *Pool) RemoveWatch(handle model.WatchHandle) error {
	if _, ok := p.watches[handle]; !ok {
		return fmt.Errorf("unknown watch handle %d", handle)
	}

	err := p.dropDirs(handle)
	delete(p.watches, handle)
	return err
}

func (p *Pool) addRecursive(root string, handle model.WatchHandle) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if path != p.watches[handle] {
			rel, err := filepath.Rel(p.watches[handle], path)
			if err == nil && p.matcher.Ignored(rel) {
				return filepath.SkipDir
			}
		}

		owners := p.watchDirs[path]
		if owners == nil {
			if err := p.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			owners = make(map[model.WatchHandle]struct{})
			p.watchDirs[path] = owners
		}
		owners[handle] = struct{}{}

		logger.Log.Debug("watching directory",
			zap.String("path", path),
			zap.Int("watch", int(handle)),
			zap.Int("owners", len(owners)))
		return nil
	})
}

// dropDirs releases every directory held by handle. The kernel watch
// goes away with the last owner.
func (p *Pool) dropDirs(handle model.WatchHandle) error {
	root := p.watches[handle]

	var rootErr error
	for dir, owners := range p.watchDirs {
		if _, ok := owners[handle]; !ok {
			continue
		}

		delete(owners, handle)
		if len(owners) > 0 {
			continue
		}

		err := p.fw.Remove(dir)
		delete(p.watchDirs, dir)
		if dir == root && err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			rootErr = fmt.Errorf("failed to remove watch on %s: %w", root, err)
		}
	}

	return rootErr
}

// forgetTree drops dir and every watched directory below it. inotify
// keeps watching a directory moved out of the tree, reporting events
// under its old path.
func (p *Pool) forgetTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range p.watchDirs {
		if path != dir && !strings.HasPrefix(path, prefix) {
			continue
		}

		_ = p.fw.Remove(path)
		delete(p.watchDirs, path)
	}
}

func (p *Pool) translate(events []fsnotify.Event) []Change {
	changes := make([]Change, 0, len(events))

	for _, ev := range events {
		owners := p.watchDirs[filepath.Dir(ev.Name)]
		if len(owners) == 0 {
			continue
		}
		handles := slices.Sorted(maps.Keys(owners))

		switch {
		case ev.Has(fsnotify.Create):
			for _, h := range handles {
				p.watchCreated(ev.Name, h)
			}
		case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
			p.forgetTree(ev.Name)
		}

		op, ok := toOperation(ev.Op)
		if !ok {
			continue
		}

		for _, h := range handles {
			rel, err := filepath.Rel(p.watches[h], ev.Name)
			if err != nil || p.matcher.Ignored(rel) {
				continue
			}

			changes = append(changes, Change{Watch: h, Name: rel, Op: op})
		}
	}

	return pipeline.Coalesce(changes)
}

// watchCreated extends the watch to a directory created below a root.
func (p *Pool) watchCreated(path string, handle model.WatchHandle) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}

	if err := p.addRecursive(path, handle); err != nil {
		logger.Log.Warn("failed to watch new directory",
			zap.String("path", path),
			zap.Error(err))
	}
}

func toOperation(op fsnotify.Op) (model.Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return model.OpAdded, true
	case op.Has(fsnotify.Write):
		return model.OpModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return model.OpDeleted, true
	}

	return "", false
}

func (p *Pool) logWatchErrors() {
	for {
		select {
		case <-p.done:
			return
		case err, ok := <-p.fw.Errors:
			if !ok {
				return
			}
			logger.Log.Error("watcher error", zap.Error(err))
		}
	}
}
