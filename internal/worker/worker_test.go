package worker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syncd/internal/model"
	"syncd/internal/report"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunFullCopiesTree(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "target")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "b.txt"), "b")

	var out bytes.Buffer
	code := Run([]string{src, dst, "ignored", "FULL"}, &out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out.String())
	}

	rep := report.Parse(&out)
	if rep.Status != report.StatusSuccess || rep.Details != "2 files copied" || rep.ErrorCount() != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}

	if readFile(t, filepath.Join(dst, "a.txt")) != "a" || readFile(t, filepath.Join(dst, "b.txt")) != "b" {
		t.Fatalf("target content mismatch")
	}
}

func TestRunFullRecursesIntoSubdirectories(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "top"), "1")
	writeFile(t, filepath.Join(src, "sub", "deep", "leaf"), "2")

	rep := Execute(Job{Src: src, Dst: dst, File: model.AllFiles, Op: model.OpFull})
	if rep.Status != report.StatusSuccess || rep.Details != "2 files copied" {
		t.Fatalf("unexpected report %+v", rep)
	}
	if readFile(t, filepath.Join(dst, "sub", "deep", "leaf")) != "2" {
		t.Fatalf("nested file not copied")
	}
}

func TestRunFullMissingSource(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{filepath.Join(t.TempDir(), "missing"), t.TempDir(), "ALL", "FULL"}, &out)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}

	rep := report.Parse(&out)
	if rep.Status != report.StatusError || rep.ErrorCount() != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !strings.Contains(rep.FirstError(), "opendir failed") {
		t.Fatalf("unexpected error line %q", rep.FirstError())
	}
}

func TestRunSingleFileOperations(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "new.txt"), "v1")

	rep := Execute(Job{Src: src, Dst: dst, File: "new.txt", Op: model.OpAdded})
	if rep.Status != report.StatusSuccess || readFile(t, filepath.Join(dst, "new.txt")) != "v1" {
		t.Fatalf("added: unexpected report %+v", rep)
	}

	writeFile(t, filepath.Join(src, "new.txt"), "v2")
	rep = Execute(Job{Src: src, Dst: dst, File: "new.txt", Op: model.OpModified})
	if rep.Status != report.StatusSuccess || readFile(t, filepath.Join(dst, "new.txt")) != "v2" {
		t.Fatalf("modified: unexpected report %+v", rep)
	}

	rep = Execute(Job{Src: src, Dst: dst, File: "new.txt", Op: model.OpDeleted})
	if rep.Status != report.StatusSuccess || rep.Details != "1 files deleted" {
		t.Fatalf("deleted: unexpected report %+v", rep)
	}
	if _, err := os.Stat(filepath.Join(dst, "new.txt")); !os.IsNotExist(err) {
		t.Fatalf("target file must be removed")
	}
}

func TestRunModifiedMissingSource(t *testing.T) {
	rep := Execute(Job{Src: t.TempDir(), Dst: t.TempDir(), File: "gone.txt", Op: model.OpModified})
	if rep.Status != report.StatusError || rep.ErrorCount() != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !strings.HasPrefix(rep.Errors[0], "-File: ") || !strings.Contains(rep.Errors[0], "open failed") {
		t.Fatalf("unexpected error line %q", rep.Errors[0])
	}
}

func TestRunPartial(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "ok.txt"), "ok")
	writeFile(t, filepath.Join(src, "locked.txt"), "no")
	if err := os.Chmod(filepath.Join(src, "locked.txt"), 0); err != nil {
		t.Fatal(err)
	}

	rep := Execute(Job{Src: src, Dst: dst, File: model.AllFiles, Op: model.OpFull})
	if rep.Status != report.StatusPartial || rep.ErrorCount() != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Details != "1 files copied, 1 files skipped" {
		t.Fatalf("unexpected details %q", rep.Details)
	}
}

func TestRunBadArguments(t *testing.T) {
	tests := [][]string{
		{"a", "b", "c"},
		{"a", "b", "c", "RENAMED"},
	}

	for _, args := range tests {
		var out bytes.Buffer
		if code := Run(args, &out); code != 1 {
			t.Fatalf("Run(%v): expected exit 1, got %d", args, code)
		}

		rep := report.Parse(&out)
		if rep.Status != report.StatusError || rep.Details != "Worker failed" {
			t.Fatalf("Run(%v): unexpected report %+v", args, rep)
		}
	}
}
