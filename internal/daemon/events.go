package daemon

import (
	"bytes"
	"fmt"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/pool"
	"syncd/internal/report"
	"time"

	"go.uber.org/zap"
)

// handleChanges turns filesystem changes into queued jobs.
func (m *Manager) handleChanges(changes []pool.Change) error {
	for _, c := range changes {
		e, ok := m.registry.LookupByWatch(c.Watch)
		if !ok || !e.Active {
			logger.Log.Debug("change for unwatched directory",
				zap.Int("watch", int(c.Watch)),
				zap.String("name", c.Name))
			continue
		}

		job := model.Job{
			Src:  e.Src,
			Dst:  e.Dst,
			File: c.Name,
			Op:   c.Op,
		}
		if err := m.queue.Enqueue(job); err != nil {
			return fmt.Errorf("failed to queue %s %s: %w", c.Op, c.Name, err)
		}
	}

	return nil
}

// handleReport processes the report of a finished worker and frees its
// slot. The directory may have been cancelled meanwhile; its statistics
// are still updated.
func (m *Manager) handleReport(ready pool.Ready) {
	job, ok := m.pool.Job(ready.Index)
	if !ok {
		logger.Log.Warn("report from idle worker slot", zap.Int("index", ready.Index))
		return
	}

	if ready.Err != nil {
		logger.Log.Warn("failed to read worker report",
			zap.Int("pid", job.WorkerPID),
			zap.Error(ready.Err))
	}

	rep := report.Parse(bytes.NewReader(ready.Report))
	errCount := rep.ErrorCount()

	m.emit(toLog, reportLine(job, rep))

	if job.UserTriggered {
		m.notice(toUser, fmt.Sprintf("Sync completed %s -> %s Errors: %d", job.Src, job.Dst, errCount))
	}

	// A zero time keeps the previous last sync.
	finishedAt := m.now()
	var lastSync time.Time
	if rep.Succeeded() {
		lastSync = finishedAt
	}

	if err := m.registry.SetIdle(job.Src, lastSync, errCount); err != nil {
		logger.Log.Error("failed to update directory", zap.String("src", job.Src), zap.Error(err))
	}

	m.record(job, model.History{
		Status:     string(rep.Status),
		Details:    rep.Details,
		ErrorCount: errCount,
		FinishedAt: finishedAt,
	})

	if err := m.pool.Release(ready.Index); err != nil {
		logger.Log.Warn("failed to release worker slot", zap.Int("index", ready.Index), zap.Error(err))
	}
}

func reportLine(job model.Job, rep report.Report) string {
	prefix := fmt.Sprintf("[%s] [%s] [%d] [%s] [%s]", job.Src, job.Dst, job.WorkerPID, job.Op, rep.Status)

	switch {
	case job.Op == model.OpFull:
		return fmt.Sprintf("%s [%s]", prefix, rep.Details)
	case rep.Status == report.StatusSuccess:
		return fmt.Sprintf("%s [File: %s]", prefix, job.File)
	}

	detail := rep.FirstError()
	if detail == "" {
		detail = rep.Details
	}
	return fmt.Sprintf("%s [%s]", prefix, detail)
}

func (m *Manager) record(job model.Job, h model.History) {
	if m.history == nil {
		return
	}

	h.Src = job.Src
	h.Dst = job.Dst
	h.File = job.Args()[2]
	h.Operation = string(job.Op)
	h.WorkerPID = job.WorkerPID
	if h.FinishedAt.IsZero() {
		h.FinishedAt = m.now()
	}

	if err := m.history.Save(&h); err != nil {
		logger.Log.Warn("failed to save history", zap.String("src", job.Src), zap.Error(err))
	}
}
