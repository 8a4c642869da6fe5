// Package log provides module-named, leveled loggers that
// share a single output sink.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/op/go-logging"
)

// Level is a logging verbosity.
type Level = logging.Level

// Levels accepted by SetLevel, from most to least verbose.
const (
	Debug   = logging.DEBUG
	Info    = logging.INFO
	Notice  = logging.NOTICE
	Warning = logging.WARNING
	Error   = logging.ERROR
)

const defaultLevel = Notice

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	lock    sync.Mutex
	backend logging.LeveledBackend
)

// Logger is implemented by every logger returned from New.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a logger tagged with a module name.
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects every logger to w, keeping the current
// level.
func SetSink(w io.Writer) {
	lock.Lock()
	defer lock.Unlock()
	setSinkLocked(w)
}

// SetLevel sets the verbosity of every logger.
//
// If no sink was set yet, logs go to stderr.
func SetLevel(level Level) {
	lock.Lock()
	defer lock.Unlock()
	if backend == nil {
		setSinkLocked(os.Stderr)
	}
	backend.SetLevel(level, "")
}

// CurrentLevel reports the verbosity set by SetLevel.
func CurrentLevel() Level {
	lock.Lock()
	defer lock.Unlock()
	if backend == nil {
		return defaultLevel
	}
	return backend.GetLevel("")
}

func setSinkLocked(w io.Writer) {
	level := defaultLevel
	if backend != nil {
		level = backend.GetLevel("")
	}
	formatted := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), format)
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(level, "")
	logging.SetBackend(backend)
}

func init() {
	SetSink(os.Stderr)
}
