package model

import "time"

// WatchHandle identifies one filesystem watch. Zero means no watch.
type WatchHandle int

type DirectoryEntry struct {
	Src        string
	Dst        string
	Watch      WatchHandle
	Active     bool
	WorkerPID  int
	LastOp     Operation
	LastSync   time.Time
	ErrorCount int
}

func (e DirectoryEntry) Busy() bool {
	return e.WorkerPID != 0
}
