package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(DEBUG, &buf)

	logger.Info("seed", "inserted rows", map[string]interface{}{"count": 2, "path": "data/my db.sqlite"})
	output := buf.String()

	if !strings.Contains(output, " INFO  seed: inserted rows") {
		t.Errorf("Expected level, component and message, got: %s", output)
	}
	if !strings.HasSuffix(output, ` count=2 path="data/my db.sqlite"`+"\n") {
		t.Errorf("Expected sorted fields with quoted spaces, got: %s", output)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(WARN, &buf)

	logger.Info("format", "should be dropped")
	logger.Debug("format", "should be dropped too")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below WARN, got: %s", buf.String())
	}

	logger.Error("format", "write failed", errors.New("disk full"))
	output := buf.String()
	if !strings.Contains(output, `error="disk full"`) {
		t.Errorf("Expected error field in output, got: %s", output)
	}
}

func TestLoggerFile(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(INFO, &buf)

	path := filepath.Join(t.TempDir(), "logs", "exploronomics.log")
	if err := logger.SetFile(path); err != nil {
		t.Fatalf("SetFile failed: %v", err)
	}
	logger.Warn("api", "slow request")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if string(data) != buf.String() {
		t.Errorf("Expected file to mirror console, got %q vs %q", data, buf.String())
	}
}

func TestRunLogger(t *testing.T) {
	var buf bytes.Buffer
	baseLogger := NewLoggerWithWriter(DEBUG, &buf)

	runLogger := NewRunLogger(baseLogger, "seed", "R123")

	runLogger.LogRunStart("./data/exploronomics.db")
	output := buf.String()
	if !strings.Contains(output, "[seed/R123] run: Starting seed") {
		t.Errorf("Expected tagged start line, got: %s", output)
	}

	buf.Reset()
	runLogger.LogPhase("insert", "Inserting country records")
	if !strings.Contains(buf.String(), "Inserting country records phase=insert") {
		t.Errorf("Expected phase line, got: %s", buf.String())
	}

	buf.Reset()
	runLogger.LogRunEnd(nil)
	if !strings.Contains(buf.String(), "seed completed") {
		t.Errorf("Expected log to contain 'seed completed', got: %s", buf.String())
	}

	buf.Reset()
	runLogger.LogRunEnd(errors.New("duplicate key"))
	output = buf.String()
	if !strings.Contains(output, "ERROR") || !strings.Contains(output, "seed failed") {
		t.Errorf("Expected failure line, got: %s", output)
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		if got := test.level.String(); got != test.expected {
			t.Errorf("Expected %d.String() to be %s, got %s", int(test.level), test.expected, got)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"fatal", INFO, true},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimer(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(DEBUG, &buf)

	timer := logger.StartTimer("format", "rewrite")
	time.Sleep(10 * time.Millisecond)
	elapsed := timer.End("CSV rewrite")

	output := buf.String()
	if !strings.Contains(output, "CSV rewrite completed") || !strings.Contains(output, "operation=rewrite") {
		t.Errorf("Expected timer line, got: %s", output)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("Expected elapsed >= 10ms, got %v", elapsed)
	}
}
