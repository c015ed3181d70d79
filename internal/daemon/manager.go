// Package daemon runs the manager's event loop: it schedules queued jobs
// onto worker slots, routes control commands, filesystem changes and
// worker reports, and drives shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syncd/internal/config"
	"syncd/internal/control"
	"syncd/internal/eventlog"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/pool"
	"syncd/internal/queue"
	"syncd/internal/registry"
	"time"

	"go.uber.org/zap"
)

// ErrAbrupt wraps every error that ended the manager without draining.
var ErrAbrupt = errors.New("abrupt shutdown")

// Recorder stores processed worker reports.
type Recorder interface {
	Save(entry *model.History) error
}

type Options struct {
	// QueueLimit bounds the job queue. Zero means unbounded.
	QueueLimit int
	// History is optional.
	History Recorder
	Now     func() time.Time
}

// Manager owns the registry, queue and pool. All of its methods run on
// the goroutine that calls Run.
type Manager struct {
	registry *registry.Registry
	queue    *queue.Queue
	pool     *pool.Pool
	events   *eventlog.Log
	out      *control.Responder
	history  Recorder
	now      func() time.Time
	state    State
}

func New(p *pool.Pool, events *eventlog.Log, out io.Writer, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var responder *control.Responder
	if out != nil {
		responder = control.NewResponder(out)
	}

	return &Manager{
		registry: registry.New(),
		queue:    queue.New(opts.QueueLimit),
		pool:     p,
		events:   events,
		out:      responder,
		history:  opts.History,
		now:      now,
	}
}

func (m *Manager) State() State {
	return m.state
}

// Entry returns the registry entry for dir.
func (m *Manager) Entry(dir string) (model.DirectoryEntry, bool) {
	return m.registry.Lookup(dir)
}

// Bootstrap registers the directory pairs read from the config file.
// A fatal error tears the manager down before it is returned.
func (m *Manager) Bootstrap(pairs []config.Pair) error {
	for _, p := range pairs {
		if err := m.addDirectory(p.Src, p.Dst, false); err != nil {
			return m.abort(err)
		}
	}

	return nil
}

// Run executes the event loop until a drained shutdown completes or a
// fatal error occurs. Cancelling ctx starts a drained shutdown.
func (m *Manager) Run(ctx context.Context) error {
	waitCtx := ctx

	for {
		if err := m.schedule(); err != nil {
			return m.abort(err)
		}

		if m.state == StateShuttingDown && m.queue.Len() == 0 && m.pool.Busy() == 0 {
			m.finish()
			return nil
		}

		ready, err := m.pool.Wait(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && errors.Is(err, waitCtx.Err()) {
				logger.Log.Info("stop requested", zap.Error(err))
				waitCtx = context.Background()
				if m.state == StateRunning {
					m.shutdown()
				}
				continue
			}
			return m.abort(err)
		}

		if err := m.route(ready); err != nil {
			return m.abort(err)
		}
	}
}

// schedule makes one pass over the jobs queued when it starts. Jobs whose
// directory is busy go back to the tail and wait for the next pass. The
// pass ends early once no slot is free.
func (m *Manager) schedule() error {
	for range m.queue.Len() {
		if m.pool.Available() == 0 {
			break
		}

		job, ok := m.queue.Dequeue()
		if !ok {
			break
		}

		if m.registry.IsBusy(job.Src) {
			if err := m.queue.Enqueue(job); err != nil {
				return fmt.Errorf("failed to requeue job for %s: %w", job.Src, err)
			}
			continue
		}

		pid, err := m.pool.Dispatch(job)
		if err != nil {
			m.dispatchFailed(job, err)
			continue
		}

		if err := m.registry.SetWorking(job.Src, pid, job.Op); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) dispatchFailed(job model.Job, err error) {
	logger.Log.Error("failed to dispatch worker",
		zap.String("src", job.Src),
		zap.String("op", string(job.Op)),
		zap.Error(err))

	m.emit(toLog, fmt.Sprintf("[%s] [%s] [None] [%s] [ERROR] [File: %s - %v]",
		job.Src, job.Dst, job.Op, job.Args()[2], err))

	if job.UserTriggered {
		m.notice(toUser, fmt.Sprintf("Sync failed %s -> %s", job.Src, job.Dst))
	}

	m.record(job, model.History{
		Status:  "ERROR",
		Details: err.Error(),
	})
}

func (m *Manager) route(ready pool.Ready) error {
	switch {
	case m.pool.IsControl(ready.Index):
		if m.state != StateRunning {
			return nil
		}
		return m.handleCommand(ready.Line)

	case m.pool.IsNotify(ready.Index):
		if m.state != StateRunning {
			return nil
		}
		return m.handleChanges(ready.Changes)

	case m.pool.IsWorker(ready.Index):
		m.handleReport(ready)
		return nil

	default:
		logger.Log.Warn("ready event from unknown source", zap.Int("index", ready.Index))
		return nil
	}
}

func (m *Manager) shutdown() {
	m.state = StateShuttingDown
	m.pool.Mute()

	m.emit(toLog|toUser,
		"Shutting down manager...",
		"Waiting for all active workers to finish.",
		"Processing remaining queued tasks.")
}

func (m *Manager) finish() {
	m.state = StateTerminated

	if err := m.pool.Close(); err != nil {
		logger.Log.Warn("failed to close worker pool", zap.Error(err))
	}

	m.emit(toLog|toUser, "Manager shutdown complete.")
}

// abort releases everything without waiting for running workers.
func (m *Manager) abort(cause error) error {
	if m.state == StateTerminated {
		return cause
	}

	logger.Log.Error("fatal error", zap.Error(cause))
	m.emit(toLog|toConsole, cause.Error(), "Shutting down abruptly.")

	for _, job := range m.queue.Snapshot() {
		logger.Log.Debug("discarding queued job",
			zap.String("src", job.Src),
			zap.String("file", job.File),
			zap.String("op", string(job.Op)))
	}

	m.state = StateTerminated
	if err := m.pool.Close(); err != nil {
		logger.Log.Warn("failed to close worker pool", zap.Error(err))
	}

	m.emit(toLog|toConsole, "Manager shutdown complete.")

	if errors.Is(cause, ErrAbrupt) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrAbrupt, cause)
}
