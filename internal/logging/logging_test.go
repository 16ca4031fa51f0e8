package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"DEBUG", LevelDebug, true},
		{"  Error ", LevelError, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLogLevelOrdering(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	original := GetLevel()
	t.Cleanup(func() { SetLevel(original) })

	buf := captureLog(t)
	SetLevel(LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line") {
		t.Errorf("missing error line in %q", out)
	}
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at warn level")
	}
}

func TestComponentLogger(t *testing.T) {
	original := GetLevel()
	t.Cleanup(func() { SetLevel(original) })

	buf := captureLog(t)
	SetLevel(LevelDebug)

	l := For("sweep")
	if l.Component() != "sweep" {
		t.Errorf("Component() = %q, want sweep", l.Component())
	}
	l.Info("pass finished in %d ms", 12)
	l.Debug("visited %s", "a/b.jpg")

	out := buf.String()
	if !strings.Contains(out, "[INFO] sweep: pass finished in 12 ms") {
		t.Errorf("unexpected info output %q", out)
	}
	if !strings.Contains(out, "[DEBUG] sweep: visited a/b.jpg") {
		t.Errorf("unexpected debug output %q", out)
	}
}

func TestEmptyComponentHasNoPrefix(t *testing.T) {
	buf := captureLog(t)
	Logger{}.Error("plain")
	if got := strings.TrimSpace(buf.String()); got != "[ERROR] plain" {
		t.Errorf("got %q, want %q", got, "[ERROR] plain")
	}
}

func TestPrintfAndPrintln(t *testing.T) {
	buf := captureLog(t)
	Printf("always %d", 1)
	Println("always", 2)
	out := buf.String()
	if !strings.Contains(out, "always 1") || !strings.Contains(out, "always 2") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
