package main

import (
	"fmt"
	"log"
	"strings"
)

// LogLevel orders log severities from debug (lowest) through error (highest).
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return "unknown"
	}
	return levelNames[l]
}

// parseLogLevel maps a config string onto a LogLevel. Matching is
// case-insensitive, "warning" is accepted as an alias for "warn", and
// anything unrecognized falls back to info.
func parseLogLevel(s string) LogLevel {
	s = strings.ToLower(s)
	if s == "warning" {
		s = "warn"
	}
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i)
		}
	}
	return LogLevelInfo
}

// Logger writes leveled, prefixed lines through the standard log package,
// dropping messages below the configured threshold.
type Logger struct {
	level LogLevel
}

func NewLogger(level string) *Logger {
	return &Logger{level: parseLogLevel(level)}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.level
}

func (l *Logger) printf(level LogLevel, format string, v ...any) {
	if l.shouldLog(level) {
		log.Printf("["+strings.ToUpper(level.String())+"] "+format, v...)
	}
}

func (l *Logger) Debugf(format string, v ...any) { l.printf(LogLevelDebug, format, v...) }

func (l *Logger) Infof(format string, v ...any) { l.printf(LogLevelInfo, format, v...) }

func (l *Logger) Warnf(format string, v ...any) { l.printf(LogLevelWarn, format, v...) }

func (l *Logger) Errorf(format string, v ...any) { l.printf(LogLevelError, format, v...) }

// Fatalf logs regardless of the threshold and exits the process.
func (l *Logger) Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Info logs already-formatted values at info level.
func (l *Logger) Info(v ...any) {
	if l.shouldLog(LogLevelInfo) {
		log.Print("[INFO] ", fmt.Sprint(v...))
	}
}
