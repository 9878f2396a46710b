package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level's tag as it appears in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

// Logger is a leveled, printf-style logger. Chatter about the connection
// and request flow goes to one writer, problems to another; the server
// keeps diagnostics on stdout and failures on stderr. All methods are safe
// for concurrent use; the serving flow and the shutdown signal path may
// both log during teardown.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer // debug and info
	errOut io.Writer // warn and error
	prefix string
}

// New returns a Logger writing every level to out.
func New(out io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		level:  level,
		out:    out,
		errOut: out,
		prefix: prefix,
	}
}

// Default returns a logger at Info level, diagnostics on stdout and
// problems on stderr.
func Default() *Logger {
	l := New(os.Stdout, LevelInfo, "[alfred]")
	l.errOut = os.Stderr
	return l
}

// Verbose returns the logger matching the -v command line toggle: Debug
// level when verbose, Info otherwise.
func Verbose(verbose bool) *Logger {
	l := Default()
	if verbose {
		l.level = LevelDebug
	}
	return l
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput directs every level to out.
func (l *Logger) SetOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
	l.errOut = out
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.out
	if level >= LevelWarn {
		w = l.errOut
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(w, "%s %s [%s] %s\n", timestamp, l.prefix, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}
