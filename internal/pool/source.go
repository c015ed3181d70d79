package pool

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syncd/internal/logger"
	"syncd/internal/model"

	"go.uber.org/zap"
)

// Event source indices. Worker slots follow the two fixed sources.
const (
	ControlIndex = 0
	NotifyIndex  = 1
	firstSlot    = 2
)

// Ready describes one event source that has something for the loop.
// Exactly one of Line, Changes or Report is meaningful, depending on
// which predicate Index satisfies.
type Ready struct {
	Index   int
	Line    string
	Changes []Change
	Report  []byte
	// Err is set when reading a worker report failed part way.
	Err error
}

// Change is one filesystem change under a watched directory. Name is
// relative to the watched root.
type Change struct {
	Watch model.WatchHandle
	Name  string
	Op    model.Operation
}

func (p *Pool) IsControl(index int) bool {
	return index == ControlIndex
}

func (p *Pool) IsNotify(index int) bool {
	return index == NotifyIndex
}

func (p *Pool) IsWorker(index int) bool {
	return index >= firstSlot && index < firstSlot+len(p.slots)
}

// AttachControl starts reading command lines from r. Reading stops at
// end of input or when the pool is closed.
func (p *Pool) AttachControl(r io.Reader) {
	lines := make(chan string)
	p.lines = lines
	go readLines(r, lines, p.done)
}

// Mute stops delivery of control lines and notifications. Worker
// reports are still delivered.
func (p *Pool) Mute() {
	p.muted = true
}

// Wait blocks until an event source is ready or ctx is done.
func (p *Pool) Wait(ctx context.Context) (Ready, error) {
	for {
		control, notify := p.lines, p.batches
		if p.muted {
			control, notify = nil, nil
		}

		select {
		case <-ctx.Done():
			return Ready{}, ctx.Err()

		case line, ok := <-control:
			if !ok {
				logger.Log.Info("control channel closed")
				p.lines = nil
				continue
			}
			return Ready{Index: ControlIndex, Line: line}, nil

		case events, ok := <-notify:
			if !ok {
				return Ready{}, ErrNotifyClosed
			}
			if changes := p.translate(events); len(changes) > 0 {
				return Ready{Index: NotifyIndex, Changes: changes}, nil
			}

		case c := <-p.completions:
			return Ready{Index: c.index, Report: c.data, Err: c.err}, nil
		}
	}
}

func readLines(r io.Reader, out chan<- string, done <-chan struct{}) {
	defer close(out)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			select {
			case out <- line:
			case <-done:
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Log.Warn("failed to read control channel", zap.Error(err))
			}
			return
		}
	}
}
