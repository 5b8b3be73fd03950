package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// caller depths: a Log call on Logger() resolves its caller three frames
// below the valuer, the package level helpers add one frame.
const (
	loggerDepth = 3
	helperDepth = 4
)

var (
	lock         sync.RWMutex
	output       io.Writer = os.Stderr
	file         *os.File
	filter                 = level.AllowInfo()
	logger                 = newLogger(output, filter, loggerDepth)
	helperLogger           = newLogger(output, filter, helperDepth)
)

// newLogger keeps the filter inside a single context so level.X and
// log.With merge their keyvals instead of adding stack frames.
func newLogger(w io.Writer, option level.Option, depth int) log.Logger {
	l := level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(w)), option)
	return log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.Caller(depth))
}

func reset() {
	logger = newLogger(output, filter, loggerDepth)
	helperLogger = newLogger(output, filter, helperDepth)
}

// Logger returns the process logger for components which want their own
// context, e.g. log.With(Logger(), "component", "http").
func Logger() log.Logger {
	lock.RLock()
	defer lock.RUnlock()
	return logger
}

func helper() log.Logger {
	lock.RLock()
	defer lock.RUnlock()
	return helperLogger
}

// SetLevel accepts debug, info, warn or error.
func SetLevel(lvl string) error {
	var option level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		option = level.AllowDebug()
	case "", "info":
		option = level.AllowInfo()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		return fmt.Errorf("unknown log level: %s", lvl)
	}

	lock.Lock()
	defer lock.Unlock()
	filter = option
	reset()
	return nil
}

// EnableFileLogger writes to savePath in addition to stderr. With
// onlyFile the stderr output is dropped.
func EnableFileLogger(savePath string, onlyFile bool) error {
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	lock.Lock()
	defer lock.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
	if onlyFile {
		output = f
	} else {
		output = io.MultiWriter(os.Stderr, f)
	}
	reset()
	return nil
}

// DisableFileLogger goes back to stderr only.
func DisableFileLogger() {
	lock.Lock()
	defer lock.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	output = os.Stderr
	reset()
}

func Debug(keyvals ...interface{}) {
	level.Debug(helper()).Log(keyvals...)
}

func Info(keyvals ...interface{}) {
	level.Info(helper()).Log(keyvals...)
}

func Warn(keyvals ...interface{}) {
	level.Warn(helper()).Log(keyvals...)
}

func Error(keyvals ...interface{}) {
	level.Error(helper()).Log(keyvals...)
}
