package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupJSONHonoursLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "warn", Format: "json", Out: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info().Msg("dropped")
	log.Warn().Str("provider", "groq").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["message"] != "kept" || entry["provider"] != "groq" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	path := filepath.Join(t.TempDir(), "logs", "vaani.log")
	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "info", Format: "json", File: path, MaxFiles: 2, Out: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Msg("to file")

	matches, err := filepath.Glob(path + ".*")
	if err != nil || len(matches) == 0 {
		t.Fatalf("no rotated file created: %v", err)
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(raw), "to file") {
		t.Fatalf("rotated file missing entry: %q", raw)
	}
}
