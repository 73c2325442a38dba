// Package logging writes leveled, component-tagged lines for the
// exploronomics CLI and the exploserve API server.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log line
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a configuration string into a LogLevel.
// Unknown names fall back to INFO and report an error.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// Logger writes one line per entry to its console writer and, when a log
// file is configured, mirrors the same line to that file.
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	console *log.Logger
	file    *log.Logger
	command string
	runID   string
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// GetLogger returns the process-wide logger, creating an INFO logger on
// stderr if none was installed.
func GetLogger() *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			globalLogger = NewLoggerWithWriter(INFO, os.Stderr)
		}
	})
	return globalLogger
}

// SetLogger replaces the process-wide logger
func SetLogger(l *Logger) {
	initOnce.Do(func() {})
	globalLogger = l
}

// NewLogger creates a stderr logger that also appends to logFile when set.
// A log file that cannot be opened is reported and otherwise ignored.
func NewLogger(level LogLevel, logFile string) *Logger {
	l := NewLoggerWithWriter(level, os.Stderr)
	if logFile != "" {
		if err := l.SetFile(logFile); err != nil {
			l.Warn("logging", "File logging disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	return l
}

// NewLoggerWithWriter creates a logger writing to w
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:   level,
		console: log.New(w, "", 0),
	}
}

// SetFile mirrors every entry to logFile, creating its directory if needed
func (l *Logger) SetFile(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = log.New(f, "", 0)
	return nil
}

// SetCommand tags subsequent lines with the CLI command name
func (l *Logger) SetCommand(command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.command = command
}

// SetRunID tags subsequent lines with the run ID
func (l *Logger) SetRunID(runID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
}

func (l *Logger) Debug(component, message string, fields ...map[string]interface{}) {
	l.write(DEBUG, component, message, merge(fields))
}

func (l *Logger) Info(component, message string, fields ...map[string]interface{}) {
	l.write(INFO, component, message, merge(fields))
}

func (l *Logger) Warn(component, message string, fields ...map[string]interface{}) {
	l.write(WARN, component, message, merge(fields))
}

// Error logs at ERROR level; a non-nil err is recorded as the error field
func (l *Logger) Error(component, message string, err error, fields ...map[string]interface{}) {
	merged := merge(fields)
	if err != nil {
		if merged == nil {
			merged = make(map[string]interface{}, 1)
		}
		merged["error"] = err.Error()
	}
	l.write(ERROR, component, message, merged)
}

func (l *Logger) write(level LogLevel, component, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := formatLine(time.Now(), level, l.command, l.runID, component, message, fields)
	l.console.Println(line)
	if l.file != nil {
		l.file.Println(line)
	}
}

// formatLine renders
//
//	2006-01-02 15:04:05.000 INFO  [command/runID] component: message key=value ...
//
// with fields sorted by key and values quoted when they contain spaces.
func formatLine(ts time.Time, level LogLevel, command, runID, component, message string, fields map[string]interface{}) string {
	var sb strings.Builder

	sb.WriteString(ts.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&sb, " %-5s ", level)

	switch {
	case command != "" && runID != "":
		fmt.Fprintf(&sb, "[%s/%s] ", command, runID)
	case command != "":
		fmt.Fprintf(&sb, "[%s] ", command)
	case runID != "":
		fmt.Fprintf(&sb, "[%s] ", runID)
	}

	if component != "" {
		sb.WriteString(component)
		sb.WriteString(": ")
	}
	sb.WriteString(message)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\"=") || v == "" {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&sb, " %s=%s", k, v)
	}

	return sb.String()
}

func merge(fields []map[string]interface{}) map[string]interface{} {
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields[0]
	}
	out := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Timer measures a single operation such as a seed batch or a CSV rewrite
type Timer struct {
	logger    *Logger
	component string
	operation string
	start     time.Time
}

// StartTimer starts timing an operation
func (l *Logger) StartTimer(component, operation string) *Timer {
	return &Timer{logger: l, component: component, operation: operation, start: time.Now()}
}

// End logs the elapsed time and returns it
func (t *Timer) End(message string) time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Info(t.component, fmt.Sprintf("%s completed in %v", message, elapsed), map[string]interface{}{
		"operation": t.operation,
	})
	return elapsed
}

// Debug logs on the process-wide logger
func Debug(component, message string, fields ...map[string]interface{}) {
	GetLogger().Debug(component, message, fields...)
}

// Info logs on the process-wide logger
func Info(component, message string, fields ...map[string]interface{}) {
	GetLogger().Info(component, message, fields...)
}

// Warn logs on the process-wide logger
func Warn(component, message string, fields ...map[string]interface{}) {
	GetLogger().Warn(component, message, fields...)
}

// Error logs on the process-wide logger
func Error(component, message string, err error, fields ...map[string]interface{}) {
	GetLogger().Error(component, message, err, fields...)
}
