package queue

import (
	"errors"
	"syncd/internal/model"
	"syncd/internal/registry"
)

var ErrFull = errors.New("job queue is full")

// Queue is a FIFO of pending jobs. It is owned by the event loop and is
// not safe for concurrent use.
type Queue struct {
	jobs  []model.Job
	limit int
}

// New returns an empty queue. A limit of zero means unbounded.
func New(limit int) *Queue {
	return &Queue{limit: limit}
}

func (q *Queue) Enqueue(job model.Job) error {
	if q.limit > 0 && len(q.jobs) >= q.limit {
		return ErrFull
	}

	job.Src = registry.Key(job.Src)
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *Queue) Dequeue() (model.Job, bool) {
	if len(q.jobs) == 0 {
		return model.Job{}, false
	}

	job := q.jobs[0]
	q.jobs[0] = model.Job{}
	q.jobs = q.jobs[1:]

	if len(q.jobs) == 0 {
		q.jobs = nil
	}

	return job, true
}

func (q *Queue) Len() int {
	return len(q.jobs)
}

// Exists reports whether any queued job targets dir.
func (q *Queue) Exists(dir string) bool {
	dir = registry.Key(dir)
	for _, job := range q.jobs {
		if job.Src == dir {
			return true
		}
	}

	return false
}

// RemoveAll drops every queued job for dir and returns how many were
// removed. The remaining jobs keep their relative order.
func (q *Queue) RemoveAll(dir string) int {
	dir = registry.Key(dir)
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.Src != dir {
			kept = append(kept, job)
		}
	}

	removed := len(q.jobs) - len(kept)
	clear(q.jobs[len(kept):])
	q.jobs = kept

	return removed
}

// Snapshot returns a copy of the queued jobs in dispatch order.
func (q *Queue) Snapshot() []model.Job {
	out := make([]model.Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}
