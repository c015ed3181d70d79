// Package worker performs a single synchronization job and describes the
// outcome as one report on its output stream.
package worker

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syncd/internal/model"
	"syncd/internal/report"
	"syncd/internal/util"
)

type Job struct {
	Src  string
	Dst  string
	File string
	Op   model.Operation
}

// ParseArgs reads the four positional arguments: source dir, target dir,
// file name and operation.
func ParseArgs(args []string) (Job, error) {
	if len(args) != 4 {
		return Job{}, fmt.Errorf("wrong number of arguments: expected 4, got %d", len(args))
	}

	op, err := model.ParseOperation(args[3])
	if err != nil {
		return Job{}, err
	}

	job := Job{Src: args[0], Dst: args[1], File: args[2], Op: op}
	if op == model.OpFull {
		job.File = model.AllFiles
	}

	return job, nil
}

// Run executes the job described by args, writes its report to out and
// returns the process exit code.
func Run(args []string, out io.Writer) int {
	job, err := ParseArgs(args)
	if err != nil {
		_ = report.Write(out, report.Report{
			Status:  report.StatusError,
			Details: "Worker failed",
			Errors:  []string{err.Error()},
		})
		return 1
	}

	rep := Execute(job)
	if err := report.Write(out, rep); err != nil {
		return 1
	}

	if rep.Succeeded() {
		return 0
	}
	return 1
}

// Execute performs the job and builds its report.
func Execute(job Job) report.Report {
	r := &result{}

	switch job.Op {
	case model.OpFull:
		r.copyTree(job.Src, job.Dst)

	case model.OpAdded, model.OpModified:
		src, dst := filepath.Join(job.Src, job.File), filepath.Join(job.Dst, job.File)
		info, err := os.Stat(src)
		switch {
		case err != nil:
			r.fail(src, "open", err)
		case info.IsDir():
			r.copyTree(src, dst)
		default:
			r.copyFile(src, dst, info.Mode().Perm())
		}

	case model.OpDeleted:
		dst := filepath.Join(job.Dst, job.File)
		if err := util.RemoveIfExists(dst); err != nil {
			r.fail(dst, "unlink", err)
		} else {
			r.deleted++
		}
	}

	return r.report()
}

type result struct {
	copied  int
	deleted int
	failed  int
	errors  []string
}

func (r *result) fail(path, action string, err error) {
	r.failed++
	r.errors = append(r.errors, fmt.Sprintf("-File: %s - %s failed: %s", path, action, describe(err)))
}

func (r *result) copyTree(srcRoot, dstRoot string) {
	info, err := os.Stat(srcRoot)
	if err != nil {
		r.fail(srcRoot, "opendir", err)
		return
	}
	if !info.IsDir() {
		r.fail(srcRoot, "opendir", fmt.Errorf("not a directory"))
		return
	}

	if err := os.MkdirAll(dstRoot, 0755); err != nil {
		r.fail(dstRoot, "opendir", err)
		return
	}

	_ = filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.fail(path, "readdir", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dstPath := toDst(srcRoot, dstRoot, path)

		if d.IsDir() {
			if err := os.MkdirAll(dstPath, 0755); err != nil {
				r.fail(dstPath, "mkdir", err)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			r.fail(path, "stat", err)
			return nil
		}

		r.copyFile(path, dstPath, fi.Mode().Perm())
		return nil
	})
}

func (r *result) copyFile(src, dst string, perm fs.FileMode) {
	if util.SameContent(src, dst) {
		r.copied++
		return
	}

	f, err := os.Open(src)
	if err != nil {
		r.fail(src, "open", err)
		return
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := util.AtomicWrite(dst, f, perm); err != nil {
		r.fail(dst, "write", err)
		return
	}

	r.copied++
}

func (r *result) report() report.Report {
	done := r.copied + r.deleted

	details := fmt.Sprintf("%d files copied", r.copied)
	if r.deleted > 0 {
		details = fmt.Sprintf("%d files deleted", r.deleted)
	}

	switch {
	case r.failed == 0:
		return report.Report{Status: report.StatusSuccess, Details: details}
	case done == 0:
		return report.Report{Status: report.StatusError, Details: "0 files copied", Errors: r.errors}
	default:
		return report.Report{
			Status:  report.StatusPartial,
			Details: fmt.Sprintf("%s, %d files skipped", details, r.failed),
			Errors:  r.errors,
		}
	}
}

func toDst(srcRoot, dstRoot, path string) string {
	rel, err := filepath.Rel(srcRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(dstRoot, filepath.Base(path))
	}

	return filepath.Join(dstRoot, rel)
}

// describe strips the path os errors repeat, since the error line
// already names the file.
func describe(err error) string {
	if pe, ok := errors.AsType[*fs.PathError](err); ok {
		return pe.Err.Error()
	}

	return err.Error()
}
