package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"syncd/internal/model"
	"time"
)

var (
	ErrAlreadyActive = errors.New("directory already active")
	ErrNotFound      = errors.New("directory not registered")
)

// Registry tracks every directory the manager has ever monitored.
// Entries are never removed; cancelled directories stay inactive.
// It is owned by the event loop and is not safe for concurrent use.
type Registry struct {
	entries map[string]*model.DirectoryEntry
	byWatch map[model.WatchHandle]string
	order   []string
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*model.DirectoryEntry),
		byWatch: make(map[model.WatchHandle]string),
	}
}

// Key normalizes a directory path the way the registry stores it.
func Key(dir string) string {
	if dir == "" {
		return dir
	}

	return filepath.Clean(dir)
}

// Add inserts src as active, or reactivates an inactive entry with a new
// watch handle and target.
func (r *Registry) Add(src, dst string, watch model.WatchHandle) error {
	src = Key(src)

	if e, ok := r.entries[src]; ok {
		if e.Active {
			return fmt.Errorf("%w: %s", ErrAlreadyActive, src)
		}

		e.Dst = dst
		e.Active = true
		e.Watch = watch
		r.byWatch[watch] = src
		return nil
	}

	r.entries[src] = &model.DirectoryEntry{
		Src:    src,
		Dst:    dst,
		Watch:  watch,
		Active: true,
	}
	r.byWatch[watch] = src
	r.order = append(r.order, src)

	return nil
}

func (r *Registry) Lookup(src string) (model.DirectoryEntry, bool) {
	e, ok := r.entries[Key(src)]
	if !ok {
		return model.DirectoryEntry{}, false
	}

	return *e, true
}

func (r *Registry) LookupByWatch(watch model.WatchHandle) (model.DirectoryEntry, bool) {
	src, ok := r.byWatch[watch]
	if !ok {
		return model.DirectoryEntry{}, false
	}

	return r.Lookup(src)
}

func (r *Registry) SetWorking(src string, pid int, op model.Operation) error {
	e, err := r.get(src)
	if err != nil {
		return err
	}

	e.WorkerPID = pid
	e.LastOp = op
	return nil
}

// SetIdle clears the worker assignment and adds errDelta to the error
// count. A zero at keeps the previous last-sync time.
func (r *Registry) SetIdle(src string, at time.Time, errDelta int) error {
	e, err := r.get(src)
	if err != nil {
		return err
	}

	e.WorkerPID = 0
	e.ErrorCount += errDelta
	if !at.IsZero() {
		e.LastSync = at
	}

	return nil
}

func (r *Registry) Deactivate(src string) error {
	e, err := r.get(src)
	if err != nil {
		return err
	}

	delete(r.byWatch, e.Watch)
	e.Active = false
	e.Watch = 0
	return nil
}

func (r *Registry) IsBusy(src string) bool {
	e, ok := r.entries[Key(src)]
	return ok && e.Busy()
}

func (r *Registry) get(src string) (*model.DirectoryEntry, error) {
	e, ok := r.entries[Key(src)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	}

	return e, nil
}
