package utils

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel orders log severities. Messages below the logger's level
// are discarded.
type LogLevel int

const (
	Critical LogLevel = 50
	Fatal    LogLevel = Critical
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

// Logger writes leveled messages with trailing key=value pairs. One
// logger per component, identified by its prefix.
type Logger struct {
	out *log.Logger

	mu    sync.RWMutex
	level LogLevel
}

// NewLogger creates a logger for the named component. The level
// defaults to Warning when not given.
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	level := Warning
	if len(logLevel) > 0 {
		level = logLevel[0]
	}
	return &Logger{
		out:   log.New(os.Stdout, "["+prefix+"] ", log.LstdFlags),
		level: level,
	}
}

// SetLogLevel changes the minimum severity that gets written
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	l.level = logLevel
	l.mu.Unlock()
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.write(Info, "INFO", msg, keyvals)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.write(Warning, "WARN", msg, keyvals)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.write(Error, "ERROR", msg, keyvals)
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.write(Debug, "DEBUG", msg, keyvals)
}

func (l *Logger) write(severity LogLevel, tag, msg string, keyvals []interface{}) {
	l.mu.RLock()
	level := l.level
	l.mu.RUnlock()
	if severity < level {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(msg)
	// Odd trailing keys are dropped rather than padded
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	l.out.Println(b.String())
}
