package app

import (
	"fmt"
	"io"
	"os"
)

// Logger is the leveled printf logger the orchestrator and its
// services log through. The CLI may swap in its own implementation via
// SetLogger; everything below the interface layer stays agnostic.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// defaultLogger prefixes each line with its level and writes to stderr,
// keeping stdout free for command output
type defaultLogger struct {
	output io.Writer
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "DEBUG: "+format+"\n", args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "INFO: "+format+"\n", args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "WARN: "+format+"\n", args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "ERROR: "+format+"\n", args...)
}

var globalLogger Logger = &defaultLogger{output: os.Stderr}

// SetLogger replaces the process-wide logger; nil is ignored
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the process-wide logger
func GetLogger() Logger {
	return globalLogger
}
