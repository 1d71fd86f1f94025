package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesRotatingFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "adlotteryd.log")
	logger := Setup("adlotteryd", "test", slog.LevelInfo, FileConfig{Path: path})
	logger.Info("committed", slog.String("op", "stake"))
	logger.Debug("hidden")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single info line, got %d: %q", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{"message": "committed", "severity": "INFO", "service": "adlotteryd", "env": "test", "op": "stake"} {
		if entry[key] != want {
			t.Fatalf("%s: got %v want %s", key, entry[key], want)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("timestamp attribute missing")
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("content", "ipfs://sealed"); got.Value.String() != RedactedValue {
		t.Fatalf("content references must be redacted, got %s", got.Value)
	}
	if got := MaskField("op", "submit"); got.Value.String() != "submit" {
		t.Fatalf("allowlisted keys must pass through, got %s", got.Value)
	}
	if got := MaskField("content", " "); got.Value.String() != " " {
		t.Fatalf("empty values must be left alone")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "verbose": slog.LevelInfo}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("%q: got %v want %v", raw, got, want)
		}
	}
}
