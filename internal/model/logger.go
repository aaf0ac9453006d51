package model

//
// Logger
//

// DebugLogger is the part of a [Logger] used to trace dials and handshakes.
type DebugLogger interface {
	Debug(msg string)
	Debugf(format string, v ...interface{})
}

// InfoLogger adds informational messages to a [DebugLogger].
type InfoLogger interface {
	DebugLogger
	Info(msg string)
	Infof(format string, v ...interface{})
}

// Logger is the logger used by the HTTP client and by the patch to report
// why TLSv1.2 could not be enabled. The apex/log `log.Log` implements it.
type Logger interface {
	InfoLogger
	Warn(msg string)
	Warnf(format string, v ...interface{})
}

// DiscardLogger is a [Logger] ignoring every message.
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debug(msg string) {}

func (logDiscarder) Debugf(format string, v ...interface{}) {}

func (logDiscarder) Info(msg string) {}

func (logDiscarder) Infof(format string, v ...interface{}) {}

func (logDiscarder) Warn(msg string) {}

func (logDiscarder) Warnf(format string, v ...interface{}) {}

// ErrorToStringOrOK returns "ok" for a nil error and the error string
// otherwise. We use it to log the outcome of handshakes.
func ErrorToStringOrOK(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// ValidLoggerOrDefault returns logger, or [DiscardLogger] when logger is nil.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}
