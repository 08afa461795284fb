package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	saved := log.Logger
	level := zerolog.GlobalLevel()
	timeFormat := zerolog.TimeFieldFormat
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = timeFormat
	})
}

func TestSetup_JSONFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "run.log")

	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = path
	cfg.Level = "debug"
	if err := Setup(cfg); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	l := WithComponent("pipeline")
	l.Debug().Int("regions", 3).Msg("processed")
	l.Trace().Msg("dropped")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "pipeline" || entry["message"] != "processed" || entry["level"] != "debug" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["regions"] != float64(3) {
		t.Errorf("regions = %v, want 3", entry["regions"])
	}
}

func TestSetup_Errors(t *testing.T) {
	restoreLogger(t)

	tests := []struct {
		name string
		cfg  LogConfig
	}{
		{"bad level", LogConfig{Level: "loud", Format: "console", Output: "stderr"}},
		{"bad output", LogConfig{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "missing", "run.log")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Setup(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Output != "stderr" || cfg.Level != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
