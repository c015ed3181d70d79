package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseSuccessWithoutErrors(t *testing.T) {
	in := "EXEC_REPORT_START\nSTATUS: SUCCESS\nDETAILS: 2 files copied\nEXEC_REPORT_END\n"

	rep := Parse(strings.NewReader(in))
	if rep.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %q", rep.Status)
	}
	if rep.Details != "2 files copied" {
		t.Fatalf("unexpected details %q", rep.Details)
	}
	if rep.ErrorCount() != 0 {
		t.Fatalf("expected no errors, got %d", rep.ErrorCount())
	}
}

func TestParseCountsErrors(t *testing.T) {
	in := strings.Join([]string{
		"EXEC_REPORT_START",
		"STATUS: PARTIAL",
		"DETAILS: 3 files copied, 2 files skipped",
		"ERRORS:",
		"-File: /a/x - open failed: permission denied",
		"-File: /a/y - read failed: input/output error",
		"EXEC_REPORT_END",
		"",
	}, "\n")

	rep := Parse(strings.NewReader(in))
	if rep.Status != StatusPartial || rep.ErrorCount() != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if got := rep.FirstError(); got != "File: /a/x - open failed: permission denied" {
		t.Fatalf("unexpected first error %q", got)
	}
	if !rep.Succeeded() {
		t.Fatalf("partial report counts as applied")
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		status     Status
		details    string
		errorCount int
	}{
		{
			name:    "empty",
			in:      "",
			status:  StatusUnknown,
			details: Unknown,
		},
		{
			name:    "garbage",
			in:      "segfault\n",
			status:  StatusUnknown,
			details: Unknown,
		},
		{
			name:    "missing details",
			in:      "EXEC_REPORT_START\nSTATUS: ERROR\nEXEC_REPORT_END\n",
			status:  StatusError,
			details: Unknown,
		},
		{
			name:    "missing status",
			in:      "EXEC_REPORT_START\nDETAILS: 1 files copied\nEXEC_REPORT_END\n",
			status:  StatusUnknown,
			details: Unknown,
		},
		{
			name:       "truncated errors",
			in:         "EXEC_REPORT_START\nSTATUS: ERROR\nDETAILS: 0 files copied\nERRORS:\n-File: a - open failed\n-File: b - open",
			status:     StatusError,
			details:    "0 files copied",
			errorCount: 2,
		},
		{
			name:       "errors without header",
			in:         "ERRORS:\n-File: a - unlink failed\nEXEC_REPORT_END\n",
			status:     StatusUnknown,
			details:    Unknown,
			errorCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Parse(strings.NewReader(tt.in))
			if rep.Status != tt.status {
				t.Fatalf("status: expected %q, got %q", tt.status, rep.Status)
			}
			if rep.Details != tt.details {
				t.Fatalf("details: expected %q, got %q", tt.details, rep.Details)
			}
			if rep.ErrorCount() != tt.errorCount {
				t.Fatalf("errors: expected %d, got %d", tt.errorCount, rep.ErrorCount())
			}
		})
	}
}

func TestWriteMatchesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Report{
		Status:  StatusError,
		Details: "0 files copied",
		Errors:  []string{"-File: /t/x - unlink failed: no such file or directory"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "EXEC_REPORT_START\nSTATUS: ERROR\nDETAILS: 0 files copied\nERRORS:\n-File: /t/x - unlink failed: no such file or directory\nEXEC_REPORT_END\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	_ = Write(&buf, Report{Status: StatusSuccess, Details: "1 files copied"})
	if strings.Contains(buf.String(), "ERRORS:") {
		t.Fatalf("success report must omit the errors section")
	}
}
