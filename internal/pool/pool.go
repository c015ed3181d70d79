// Package pool manages the bounded set of worker slots and the event
// sources the manager's loop waits on: the control channel, filesystem
// notifications and one report pipe per busy slot.
package pool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/pipeline"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrNoFreeSlot   = errors.New("no free worker slot")
	ErrPipe         = errors.New("pipe failed")
	ErrSpawn        = errors.New("spawn failed")
	ErrHandoff      = errors.New("handoff failed")
	ErrExec         = errors.New("exec failed")
	ErrNotifyClosed = errors.New("notification channel closed")
)

const (
	defaultBatchLimit = 64
	maxReportSize     = 1 << 20
)

type Options struct {
	// Limit is the number of worker slots.
	Limit int
	// Command is the worker program followed by any leading arguments;
	// the four job arguments are appended to it.
	Command     []string
	Ignore      []string
	BatchWindow time.Duration
	BatchLimit  int
}

type slot struct {
	busy bool
	job  model.Job
	pipe *os.File
}

type completion struct {
	index int
	data  []byte
	err   error
}

// Pool is owned by the event loop goroutine. Only the helper goroutines
// it starts (control reader, notification batcher, report collectors,
// reapers) run elsewhere, and they talk to it through channels.
type Pool struct {
	command []string
	slots   []slot
	free    []int
	busy    int

	fw        *fsnotify.Watcher
	matcher   *pipeline.Matcher
	watches   map[model.WatchHandle]string
	watchDirs map[string]map[model.WatchHandle]struct{}
	nextWatch model.WatchHandle

	lines       chan string
	batches     <-chan []fsnotify.Event
	completions chan completion
	muted       bool

	done      chan struct{}
	closeOnce sync.Once
}

func New(opts Options) (*Pool, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("worker limit must be positive, got %d", opts.Limit)
	}
	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return nil, fmt.Errorf("worker command is empty")
	}

	matcher, err := pipeline.NewMatcher(opts.Ignore)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	batchLimit := opts.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}

	p := &Pool{
		command:     slices.Clone(opts.Command),
		slots:       make([]slot, opts.Limit),
		free:        make([]int, 0, opts.Limit),
		fw:          fw,
		matcher:     matcher,
		watches:     make(map[model.WatchHandle]string),
		watchDirs:   make(map[string]map[model.WatchHandle]struct{}),
		completions: make(chan completion, opts.Limit),
		done:        make(chan struct{}),
	}

	for i := range opts.Limit {
		p.free = append(p.free, firstSlot+i)
	}

	p.batches = pipeline.Batch[fsnotify.Event](p.done, fw.Events, opts.BatchWindow, batchLimit)
	go p.logWatchErrors()

	return p, nil
}

func (p *Pool) Limit() int {
	return len(p.slots)
}

func (p *Pool) Available() int {
	return len(p.free)
}

func (p *Pool) Busy() int {
	return p.busy
}

// Dispatch starts a worker for job in a free slot and returns its
// process id. Every failure leaves the slot free.
func (p *Pool) Dispatch(job model.Job) (int, error) {
	if len(p.free) == 0 {
		return 0, ErrNoFreeSlot
	}

	r, w, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPipe, err)
	}

	args := append(slices.Clone(p.command[1:]), job.Args()...)
	cmd := exec.Command(p.command[0], args...)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return 0, classifyStart(err)
	}

	// The worker now holds its own copy of the write end; ours must go
	// so the read end sees end-of-file when the worker exits.
	if err := w.Close(); err != nil {
		_ = cmd.Process.Kill()
		_ = r.Close()
		go reap(cmd)
		return 0, fmt.Errorf("%w: %w", ErrHandoff, err)
	}

	index := p.free[0]
	p.free = p.free[1:]

	job.WorkerPID = cmd.Process.Pid
	p.slots[index-firstSlot] = slot{busy: true, job: job, pipe: r}
	p.busy++

	go p.collect(index, r)
	go reap(cmd)

	logger.Log.Debug("worker dispatched",
		zap.Int("slot", index),
		zap.Int("pid", job.WorkerPID),
		zap.String("src", job.Src),
		zap.String("op", string(job.Op)))

	return job.WorkerPID, nil
}

// Job returns the job running in the worker slot at index.
func (p *Pool) Job(index int) (model.Job, bool) {
	if !p.IsWorker(index) {
		return model.Job{}, false
	}

	s := p.slots[index-firstSlot]
	return s.job, s.busy
}

// Release closes the slot's pipe and returns it to the free pool.
func (p *Pool) Release(index int) error {
	if !p.IsWorker(index) {
		return fmt.Errorf("invalid worker slot %d", index)
	}

	s := &p.slots[index-firstSlot]
	if !s.busy {
		return fmt.Errorf("worker slot %d is not busy", index)
	}

	err := s.pipe.Close()
	*s = slot{}
	p.free = append(p.free, index)
	p.busy--

	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close worker pipe: %w", err)
	}

	return nil
}

// Close releases every resource immediately. Running workers are not
// waited for; their reapers still collect them.
func (p *Pool) Close() error {
	var errs []error

	p.closeOnce.Do(func() {
		close(p.done)
		errs = append(errs, p.fw.Close())

		for i := range p.slots {
			if p.slots[i].busy {
				errs = append(errs, p.slots[i].pipe.Close())
				p.slots[i] = slot{}
			}
		}
		p.free = p.free[:0]
		p.busy = 0
	})

	return errors.Join(errs...)
}

func (p *Pool) collect(index int, r io.Reader) {
	data, err := io.ReadAll(io.LimitReader(r, maxReportSize))
	p.completions <- completion{index: index, data: data, err: err}
}

func reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		logger.Log.Debug("worker exited",
			zap.Int("pid", cmd.Process.Pid),
			zap.Error(err))
		return
	}

	logger.Log.Debug("worker exited",
		zap.Int("pid", cmd.Process.Pid))
}

func classifyStart(err error) error {
	if _, ok := errors.AsType[*exec.Error](err); ok {
		return fmt.Errorf("%w: %w", ErrExec, err)
	}

	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.ENOEXEC) {
		return fmt.Errorf("%w: %w", ErrExec, err)
	}

	return fmt.Errorf("%w: %w", ErrSpawn, err)
}
