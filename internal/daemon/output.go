package daemon

import (
	"fmt"
	"syncd/internal/eventlog"
	"syncd/internal/logger"

	"go.uber.org/zap"
)

// sink selects where a message goes.
type sink uint8

const (
	toLog sink = 1 << iota
	toConsole
	toOutput
)

const toUser = toConsole | toOutput

// emit sends msgs as one block. Each message is timestamped: the event
// log stamps its own lines, output lines are stamped here.
func (m *Manager) emit(to sink, msgs ...string) {
	m.emitBlock(to, msgs, nil)
}

// notice sends unstamped lines as one block. Notices never reach the
// event log.
func (m *Manager) notice(to sink, lines ...string) {
	m.emitBlock(to&^toLog, nil, lines)
}

func (m *Manager) emitBlock(to sink, msgs, body []string) {
	ts := m.now().Format(eventlog.TimeLayout)
	out := make([]string, 0, len(msgs)+len(body))

	for _, msg := range msgs {
		if to&toLog != 0 && m.events != nil {
			m.events.Print(msg)
		}
		if to&toConsole != 0 {
			logger.Log.Info(msg)
		}
		out = append(out, fmt.Sprintf("[%s] %s", ts, msg))
	}

	for _, line := range body {
		if to&toConsole != 0 {
			logger.Log.Info(line)
		}
		out = append(out, line)
	}

	if to&toOutput == 0 {
		return
	}

	if err := m.out.Send(out...); err != nil {
		logger.Log.Warn("failed to write response", zap.Error(err))
	}
}
