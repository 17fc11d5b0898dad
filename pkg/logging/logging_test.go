package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel}, // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("connection established",
		Manager("cm1"),
		ConnID("abc-123"),
		Members(3),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["msg"] != "connection established" {
		t.Errorf("Unexpected message: %v", entry["msg"])
	}

	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatal("Expected fields object in entry")
	}
	if fields["cache_manager"] != "cm1" {
		t.Errorf("Expected cache_manager 'cm1', got %v", fields["cache_manager"])
	}
	if fields["conn_id"] != "abc-123" {
		t.Errorf("Expected conn_id 'abc-123', got %v", fields["conn_id"])
	}
	if fields["members"] != float64(3) {
		t.Errorf("Expected members 3, got %v", fields["members"])
	}
}

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("should be suppressed")
	logger.Info("should be suppressed too")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("Suppressed levels leaked into output: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warn entry missing from output: %s", out)
	}
}

func TestWithCreatesChildLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("tier-client"))
	child.Info("hello")

	if !strings.Contains(buf.String(), "tier-client") {
		t.Errorf("Child logger lost pre-set field: %s", buf.String())
	}

	// Parent must not inherit the child's fields
	buf.Reset()
	logger.Info("from parent")
	if strings.Contains(buf.String(), "tier-client") {
		t.Errorf("Parent logger gained child's field: %s", buf.String())
	}
}

func TestErrorField(t *testing.T) {
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) should carry nil value, got %v", f.Value)
	}

	err := errors.New("boom")
	if f := Error(err); f.Value != "boom" {
		t.Errorf("Error(err) = %v, want 'boom'", f.Value)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNopLogger()
	// Must not panic and With must return a usable logger
	logger.With(String("k", "v")).Error("ignored", Count(1))
}
