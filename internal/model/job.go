package model

import (
	"fmt"
	"strings"
)

type Operation string

const (
	OpFull     Operation = "FULL"
	OpAdded    Operation = "ADDED"
	OpModified Operation = "MODIFIED"
	OpDeleted  Operation = "DELETED"
)

// AllFiles is the file name carried by FULL jobs.
const AllFiles = "ALL"

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToUpper(strings.TrimSpace(s))); op {
	case OpFull, OpAdded, OpModified, OpDeleted:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation: %q", s)
	}
}

// Job is one unit of synchronization work. WorkerPID is zero while queued.
type Job struct {
	Src           string
	Dst           string
	File          string
	Op            Operation
	UserTriggered bool
	WorkerPID     int
}

func NewFullJob(src, dst string, userTriggered bool) Job {
	return Job{
		Src:           src,
		Dst:           dst,
		File:          AllFiles,
		Op:            OpFull,
		UserTriggered: userTriggered,
	}
}

// Args returns the four positional worker arguments.
func (j Job) Args() []string {
	file := j.File
	if j.Op == OpFull || file == "" {
		file = AllFiles
	}

	return []string{j.Src, j.Dst, file, string(j.Op)}
}
