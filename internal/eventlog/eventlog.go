// Package eventlog writes the manager's append-only event log, one
// "[<timestamp>] <message>" line per event.
package eventlog

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const TimeLayout = "2006-01-02 15:04:05"

type Log struct {
	z      *zap.Logger
	closer io.Closer
}

// Open appends to the log file at path, rotating it once it grows past
// maxSizeMB megabytes.
func Open(path string, maxSizeMB int) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	lj := &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
	}

	// lumberjack opens lazily; touch the file so a bad path fails here.
	if _, err := lj.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	l := New(lj)
	l.closer = lj
	return l, nil
}

// New writes events to w.
func New(w io.Writer) *Log {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString("[" + t.Format(TimeLayout) + "]")
		},
	})

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return &Log{z: zap.New(core)}
}

func (l *Log) Print(msg string) {
	l.z.Info(msg)
}

func (l *Log) Close() error {
	_ = l.z.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}

	return nil
}
