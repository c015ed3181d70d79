// Package report implements the text format a worker writes on its
// standard output to describe the outcome of one job.
//
//	EXEC_REPORT_START
//	STATUS: SUCCESS|ERROR|PARTIAL
//	DETAILS: <free text>
//	ERRORS:
//	<error line>
//	EXEC_REPORT_END
//
// The ERRORS section is omitted when there are no errors.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
	StatusPartial Status = "PARTIAL"
	StatusUnknown Status = "Unknown"
)

const (
	startMarker  = "EXEC_REPORT_START"
	endMarker    = "EXEC_REPORT_END"
	statusPrefix = "STATUS:"
	detailPrefix = "DETAILS:"
	errorsMarker = "ERRORS:"
)

// Unknown is the value of fields missing from a malformed report.
const Unknown = "Unknown"

type Report struct {
	Status  Status
	Details string
	Errors  []string
}

func (r Report) ErrorCount() int {
	return len(r.Errors)
}

// FirstError returns the first error line without its leading dash.
func (r Report) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}

	return strings.TrimPrefix(r.Errors[0], "-")
}

// Succeeded reports whether at least part of the job was applied.
func (r Report) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusPartial
}

func Write(w io.Writer, r Report) error {
	var b strings.Builder

	b.WriteString(startMarker + "\n")
	fmt.Fprintf(&b, "%s %s\n", statusPrefix, r.Status)
	fmt.Fprintf(&b, "%s %s\n", detailPrefix, r.Details)

	if len(r.Errors) > 0 {
		b.WriteString(errorsMarker + "\n")
		for _, e := range r.Errors {
			b.WriteString(strings.TrimRight(e, "\n") + "\n")
		}
	}

	b.WriteString(endMarker + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Parse reads one report. It never fails: a field that is missing or
// out of place is set to Unknown, and errors are still counted on a
// best-effort basis.
func Parse(r io.Reader) Report {
	rep := Report{
		Status:  StatusUnknown,
		Details: Unknown,
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}

	i := 0
	next := func() (string, bool) {
		if i >= len(lines) {
			return "", false
		}
		line := lines[i]
		i++
		return line, true
	}

	if line, ok := next(); !ok || line != startMarker {
		i = 0
	} else if line, ok := next(); ok && strings.HasPrefix(line, statusPrefix) {
		rep.Status = Status(strings.TrimSpace(strings.TrimPrefix(line, statusPrefix)))
		if line, ok := next(); ok && strings.HasPrefix(line, detailPrefix) {
			rep.Details = strings.TrimSpace(strings.TrimPrefix(line, detailPrefix))
		} else if ok {
			i--
		}
	} else if ok {
		i--
	}

	for ; i < len(lines); i++ {
		if lines[i] == errorsMarker {
			i++
			break
		}
	}

	for ; i < len(lines); i++ {
		if lines[i] == endMarker {
			break
		}
		if lines[i] == "" {
			continue
		}
		rep.Errors = append(rep.Errors, lines[i])
	}

	if rep.Status == "" {
		rep.Status = StatusUnknown
	}
	if rep.Details == "" {
		rep.Details = Unknown
	}

	return rep
}
