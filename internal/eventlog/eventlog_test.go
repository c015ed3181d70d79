package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var lineRe = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] (.*)$`)

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Print("Monitoring started for /a")
	l.Print(fmt.Sprintf("[%s] [%s] [%d]", "/a", "/b", 7))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}

	want := []string{"Monitoring started for /a", "[/a] [/b] [7]"}
	for i, line := range lines {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			t.Fatalf("line %q does not match the event log format", line)
		}
		if m[1] != want[i] {
			t.Fatalf("expected message %q, got %q", want[i], m[1])
		}
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.log")
	if err := os.WriteFile(path, []byte("previous\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.Print("next")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "previous\n") || !strings.Contains(string(data), "] next\n") {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open("", 1); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
