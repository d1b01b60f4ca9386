package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)
}

type defaultLogger struct {
	entry *log.Entry
}

// NewLogger creates a logger writing text lines to stderr. SILENCE discards
// every message.
func NewLogger(level int) *defaultLogger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(toLogrusLevel(level))
	if level >= SILENCE {
		l.SetOutput(io.Discard)
	}

	return &defaultLogger{entry: log.NewEntry(l)}
}

// ParseLevel converts a textual level (debug, info, warn, error, silence) to
// one of the level constants. Unknown values fall back to INFO.
func ParseLevel(level string) int {
	switch level {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "silence":
		return SILENCE
	default:
		return INFO
	}
}

// With returns a logger which attaches the key-value pair to every message.
func (l *defaultLogger) With(key string, value any) Logger {
	return &defaultLogger{entry: l.entry.WithField(key, value)}
}

func (l *defaultLogger) Debugf(msg string, a ...any) {
	l.entry.Debugf(msg, a...)
}

func (l *defaultLogger) Infof(msg string, a ...any) {
	l.entry.Infof(msg, a...)
}

func (l *defaultLogger) Warnf(msg string, a ...any) {
	l.entry.Warnf(msg, a...)
}

func (l *defaultLogger) Errorf(msg string, a ...any) {
	l.entry.Errorf(msg, a...)
}

func toLogrusLevel(level int) log.Level {
	switch level {
	case DEBUG:
		return log.DebugLevel
	case INFO:
		return log.InfoLevel
	case WARNING:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}
