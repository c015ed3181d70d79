package control

import (
	"fmt"
	"io"
	"strings"
)

// Responder writes response blocks to the output channel. Each block is
// a line count followed by that many lines, so a reader always knows how
// much to consume.
type Responder struct {
	w io.Writer
}

func NewResponder(w io.Writer) *Responder {
	return &Responder{w: w}
}

func (r *Responder) Send(lines ...string) error {
	if r == nil || r.w == nil || len(lines) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", len(lines))
	for _, line := range lines {
		b.WriteString(strings.TrimRight(line, "\n"))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}
