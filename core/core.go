package core

import "github.com/agentgrid/relay/logging"

// logSink supplies the LogDebug/LogInfo/LogWarn/LogError methods that
// RunContext and ToolContext expose. The zero value is usable and drops
// everything, so embedding types never nil-check before logging.
type logSink struct {
	logger logging.Logger
}

func newLogSink(l logging.Logger) logSink {
	return logSink{logger: l}
}

// Logger returns the wrapped logger for handing to subcomponents. Never nil.
func (s logSink) Logger() logging.Logger {
	if s.logger == nil {
		return logging.NoOpLogger{}
	}
	return s.logger
}

func (s logSink) LogDebug(msg string, args ...any) { s.Logger().Debug(msg, args...) }
func (s logSink) LogInfo(msg string, args ...any)  { s.Logger().Info(msg, args...) }
func (s logSink) LogWarn(msg string, args ...any)  { s.Logger().Warn(msg, args...) }
func (s logSink) LogError(msg string, args ...any) { s.Logger().Error(msg, args...) }
