package daemon

import (
	"errors"
	"fmt"
	"path/filepath"
	"syncd/internal/control"
	"syncd/internal/eventlog"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/registry"

	"go.uber.org/zap"
)

// handleCommand executes one control line. Only fatal errors are
// returned; everything else is reported to the user.
func (m *Manager) handleCommand(line string) error {
	cmd, err := control.Parse(line)
	if err != nil {
		logger.Log.Warn("invalid command", zap.String("line", line), zap.Error(err))
		m.emit(toUser, "Invalid command: "+line)
		return nil
	}

	switch cmd.Kind {
	case control.CmdAdd:
		return m.addDirectory(cmd.Src, cmd.Dst, true)
	case control.CmdStatus:
		m.status(cmd.Src)
		return nil
	case control.CmdCancel:
		return m.cancel(cmd.Src)
	case control.CmdSync:
		return m.sync(cmd.Src)
	case control.CmdShutdown:
		m.shutdown()
		return nil
	default:
		return nil
	}
}

// addDirectory starts monitoring src and queues a full sync. Messages go
// to the output channel only when the request came from it.
func (m *Manager) addDirectory(src, dst string, fromControl bool) error {
	src = registry.Key(src)
	dst = filepath.Clean(dst)

	to := toConsole
	if fromControl {
		to |= toOutput
	}

	if e, ok := m.registry.Lookup(src); ok && e.Active {
		m.emit(to, "Already in queue: "+src)
		return nil
	}

	handle, err := m.pool.AddWatch(src)
	if err != nil {
		logger.Log.Warn("failed to watch directory", zap.String("src", src), zap.Error(err))
		m.emit(to, fmt.Sprintf("Unable to start monitoring %s -> %s: %v", src, dst, err))
		return nil
	}

	if err := m.registry.Add(src, dst, handle); err != nil {
		_ = m.pool.RemoveWatch(handle)
		return fmt.Errorf("failed to register %s: %w", src, err)
	}

	if err := m.queue.Enqueue(model.NewFullJob(src, dst, false)); err != nil {
		return fmt.Errorf("failed to queue full sync for %s: %w", src, err)
	}

	m.emit(to|toLog,
		fmt.Sprintf("Added directory: %s -> %s", src, dst),
		"Monitoring started for "+src)

	return nil
}

func (m *Manager) status(dir string) {
	dir = registry.Key(dir)

	e, ok := m.registry.Lookup(dir)
	if !ok {
		m.emit(toUser, "Directory not monitored: "+dir)
		return
	}

	lastSync := "Never"
	if !e.LastSync.IsZero() {
		lastSync = e.LastSync.Format(eventlog.TimeLayout)
	}

	state := "Inactive"
	if e.Active {
		state = "Active"
	}

	m.emitBlock(toUser,
		[]string{"Status requested for " + e.Src},
		[]string{
			"Directory: " + e.Src,
			"Target: " + e.Dst,
			"Last sync: " + lastSync,
			fmt.Sprintf("Errors: %d", e.ErrorCount),
			"Status: " + state,
		})
}

// cancel stops monitoring dir and drops its queued jobs. A job already
// running finishes normally.
func (m *Manager) cancel(dir string) error {
	dir = registry.Key(dir)

	e, ok := m.registry.Lookup(dir)
	if !ok || !e.Active {
		m.emit(toUser, "Directory not monitored: "+dir)
		return nil
	}

	if err := m.pool.RemoveWatch(e.Watch); err != nil {
		logger.Log.Warn("failed to remove watch", zap.String("src", e.Src), zap.Error(err))
		m.emit(toUser, fmt.Sprintf("Couldn't cancel %s - failed to remove watch: %v", e.Src, err))
	}

	if err := m.registry.Deactivate(e.Src); err != nil {
		return err
	}

	removed := m.queue.RemoveAll(e.Src)
	logger.Log.Debug("queued jobs removed",
		zap.String("src", e.Src),
		zap.Int("count", removed))

	m.emit(toLog|toUser, "Monitoring stopped for "+e.Src)
	return nil
}

// sync queues a user-triggered full sync unless one is already queued or
// running. An inactive directory is watched again first.
func (m *Manager) sync(dir string) error {
	dir = registry.Key(dir)

	e, ok := m.registry.Lookup(dir)
	if !ok {
		m.emit(toUser, "Directory not monitored: "+dir)
		return nil
	}

	if e.Busy() || m.queue.Exists(e.Src) {
		m.emit(toUser, "Sync already in progress "+e.Src)
		return nil
	}

	if !e.Active {
		handle, err := m.pool.AddWatch(e.Src)
		if err != nil {
			logger.Log.Warn("failed to watch directory", zap.String("src", e.Src), zap.Error(err))
			m.emit(toUser, fmt.Sprintf("Unable to start monitoring %s -> %s: %v", e.Src, e.Dst, err))
			return nil
		}

		if err := m.registry.Add(e.Src, e.Dst, handle); err != nil {
			_ = m.pool.RemoveWatch(handle)
			if errors.Is(err, registry.ErrAlreadyActive) {
				return nil
			}
			return fmt.Errorf("failed to reactivate %s: %w", e.Src, err)
		}
	}

	if err := m.queue.Enqueue(model.NewFullJob(e.Src, e.Dst, true)); err != nil {
		return fmt.Errorf("failed to queue sync for %s: %w", e.Src, err)
	}

	m.emit(toLog|toUser, fmt.Sprintf("Syncing directory: %s -> %s", e.Src, e.Dst))
	return nil
}
