package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"trace", logrus.TraceLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(Options{Level: tt.level, Output: &bytes.Buffer{}})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if logger.GetLevel() != tt.want {
				t.Errorf("level: got %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}

	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.WithField("tool", "maze_solve").Info("tool called")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "tool called" || entry["tool"] != "maze_solve" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_TextAndNested(t *testing.T) {
	for _, format := range []string{"text", "nested", ""} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Options{Level: "info", Format: format, Output: &buf})
			if err != nil {
				t.Fatal(err)
			}
			logger.WithField("frames", 3).Info("projection stopped")
			out := buf.String()
			if !strings.Contains(out, "projection stopped") || !strings.Contains(out, "frames") {
				t.Errorf("output missing message or field: %q", out)
			}
		})
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maze.log")
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", File: path, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Error("message should reach both the file and the output")
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}
