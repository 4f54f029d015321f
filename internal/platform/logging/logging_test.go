package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Stdout: &buf})

	logger.Info().Msg("dropped")
	logger.Warn().Str("tier", "SENIOR").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "kept" || entry["service"] != "queue-server" || entry["tier"] != "SENIOR" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_DevConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Dev: true, Stdout: &buf})
	logger.Info().Msg("hello")
	if json.Valid(buf.Bytes()) {
		t.Error("development output should not be JSON")
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("missing message in %q", buf.String())
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.log")
	var buf bytes.Buffer
	logger := New(Options{File: path, MaxSizeMB: 1, Stdout: &buf})
	logger.Info().Msg("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Error("expected the line in stdout and in the file")
	}
}
