//go:build unix

package control

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Channel is the pair of named pipes a console talks to the manager over.
type Channel struct {
	In  *os.File
	Out *os.File

	inPath  string
	outPath string
}

// OpenFIFOs recreates the named pipes at inPath and outPath and opens
// both read-write, so the manager never sees end-of-file when a console
// detaches.
func OpenFIFOs(inPath, outPath string) (*Channel, error) {
	for _, path := range []string{inPath, outPath} {
		if err := unix.Unlink(path); err != nil && !errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("failed to remove stale pipe %s: %w", path, err)
		}
		if err := unix.Mkfifo(path, 0644); err != nil {
			return nil, fmt.Errorf("named pipe %q failed: %w", path, err)
		}
	}

	in, err := os.OpenFile(inPath, os.O_RDWR, 0)
	if err != nil {
		removeAll(inPath, outPath)
		return nil, fmt.Errorf("open failed for named pipe %q: %w", inPath, err)
	}

	out, err := os.OpenFile(outPath, os.O_RDWR, 0)
	if err != nil {
		_ = in.Close()
		removeAll(inPath, outPath)
		return nil, fmt.Errorf("open failed for named pipe %q: %w", outPath, err)
	}

	return &Channel{
		In:      in,
		Out:     out,
		inPath:  inPath,
		outPath: outPath,
	}, nil
}

// Close closes both ends and removes the pipes.
func (c *Channel) Close() error {
	err := errors.Join(c.In.Close(), c.Out.Close())
	removeAll(c.inPath, c.outPath)
	return err
}

func removeAll(paths ...string) {
	for _, path := range paths {
		_ = unix.Unlink(path)
	}
}
