// Package control implements the manager's text control channel:
// command lines in, framed response blocks out.
package control

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	CmdAdd      Kind = "add"
	CmdStatus   Kind = "status"
	CmdCancel   Kind = "cancel"
	CmdSync     Kind = "sync"
	CmdShutdown Kind = "shutdown"
)

var ErrInvalidCommand = errors.New("invalid command")

type Command struct {
	Kind Kind
	Src  string
	Dst  string
}

// Parse reads one command line. Arguments are separated by whitespace.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrInvalidCommand)
	}

	kind, args := Kind(fields[0]), fields[1:]

	switch kind {
	case CmdAdd:
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: usage: add <source> <target>", ErrInvalidCommand)
		}
		return Command{Kind: kind, Src: args[0], Dst: args[1]}, nil

	case CmdStatus, CmdCancel, CmdSync:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: %s <directory>", ErrInvalidCommand, kind)
		}
		return Command{Kind: kind, Src: args[0]}, nil

	case CmdShutdown:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: usage: shutdown", ErrInvalidCommand)
		}
		return Command{Kind: kind}, nil

	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, fields[0])
	}
}
