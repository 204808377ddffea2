package types

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/rs/zerolog"
)

// NewMultirootLogger creates a new logger with the given name and level.
// The level is used to set the log level, defaulting to info.
// The log level can be overridden by setting the environment variable $NAME_DEBUG to any parseable value.
// If quiet is true, the logger will not log to the console.
func NewMultirootLogger(name, level string, quiet bool) MultirootLogger {
	var loggers []io.Writer
	var l zerolog.Level
	var fileLock *flock.Flock
	var logfile *os.File
	var err error

	if isJournaldAvailable() {
		loggers = append(loggers, getJournaldWriter())
	} else {
		// Default to file logging
		_ = os.MkdirAll(constants.LogDir, os.ModeDir|os.ModePerm)
		logFileName := filepath.Join(constants.LogDir, constants.LogFile)

		logfile, err = os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			loggers = append(loggers, zerolog.ConsoleWriter{Out: logfile, TimeFormat: time.RFC3339, NoColor: true})
		}

		fileLock = flock.New(logFileName + ".lock")
	}

	if !quiet {
		loggers = append(loggers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = time.RFC3339
		}))
	}

	// Parse the level, default to info
	l, err = zerolog.ParseLevel(level)
	if err != nil {
		l = zerolog.InfoLevel
	}

	multi := zerolog.MultiLevelWriter(loggers...)

	// Set debug level if set on ENV
	debugFromEnv := os.Getenv(fmt.Sprintf("%s_DEBUG", strings.ToUpper(name))) != ""
	if debugFromEnv {
		l = zerolog.DebugLevel
	}
	// Set trace level if set on ENV
	traceFromEnv := os.Getenv(fmt.Sprintf("%s_TRACE", strings.ToUpper(name))) != ""
	if traceFromEnv {
		l = zerolog.TraceLevel
	}
	m := MultirootLogger{
		zerolog.New(multi).With().Timestamp().Logger().Level(l),
		fileLock,
		logfile,
		isJournaldAvailable(),
	}

	// Set the finalizer to call the cleanup method
	runtime.SetFinalizer(&m, func(m *MultirootLogger) {
		m.Cleanup()
	})

	return m
}

func (m *MultirootLogger) Cleanup() {
	if m.fileLock != nil {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
	}

	if m.logFile != nil {
		m.logFile.Close()
		m.logFile = nil
	}
	if m.fileLock != nil {
		m.fileLock.Unlock()
		m.fileLock = nil
	}
}

func NewBufferLogger(b *bytes.Buffer) MultirootLogger {
	return MultirootLogger{
		zerolog.New(b).With().Timestamp().Logger(),
		nil,
		nil,
		true,
	}
}

func NewNullLogger() MultirootLogger {
	return MultirootLogger{
		zerolog.New(io.Discard).With().Timestamp().Logger(),
		nil,
		nil,
		true,
	}
}

// MultirootLogger wraps zerolog so call sites get structured logging plus
// the printf-style helpers the rest of the tree uses.
type MultirootLogger struct {
	zerolog.Logger
	fileLock *flock.Flock
	logFile  *os.File
	journald bool // Whether we are logging to journald, to avoid the file lock
}

func (m *MultirootLogger) SetLevel(level string) {
	l, _ := zerolog.ParseLevel(level)
	// Level returns a child logger so we need to overwrite ours
	m.Logger = m.Logger.Level(l)
}

func (m MultirootLogger) GetLevel() zerolog.Level {
	return m.Logger.GetLevel()
}

func (m MultirootLogger) IsDebug() bool {
	return m.Logger.GetLevel() == zerolog.DebugLevel
}

func (m MultirootLogger) Infof(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		// Add the pid to the log line so searching for it is easier
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Info().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Info(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Info().Msg(fmt.Sprint(args...))
}
func (m MultirootLogger) Warnf(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Warn().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Warn(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Warn().Msg(fmt.Sprint(args...))
}
func (m MultirootLogger) Debugf(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Debug().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Debug(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Debug().Msg(fmt.Sprint(args...))
}
func (m MultirootLogger) Errorf(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Error().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Error(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Error().Msg(fmt.Sprint(args...))
}
func (m MultirootLogger) Fatalf(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Fatal().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Fatal(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Fatal().Msg(fmt.Sprint(args...))
}
func (m MultirootLogger) Tracef(tpl string, args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		tpl = fmt.Sprintf("[%v] ", os.Getpid()) + tpl
	}
	m.Logger.Trace().Msg(fmt.Sprintf(tpl, args...))
}
func (m MultirootLogger) Trace(args ...interface{}) {
	if !m.journald {
		m.fileLock.Lock()
		defer m.fileLock.Unlock()
		args = append([]interface{}{fmt.Sprintf("[%v]", os.Getpid())}, args...)
	}
	m.Logger.Trace().Msg(fmt.Sprint(args...))
}
