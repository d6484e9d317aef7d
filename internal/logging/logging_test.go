package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "scribe.log")
	cfg.Logging.Stdout = false
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	logger, err := Configure(cfg, false)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level=%v", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.Warn("visible")

	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), `"msg":"visible"`) {
		t.Fatalf("unexpected log content: %s", data)
	}
}

func TestConfigureDebugOverridesLevel(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "scribe.log")
	cfg.Logging.Stdout = false

	logger, err := Configure(cfg, true)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel || !logger.ReportCaller {
		t.Fatalf("level=%v caller=%v", logger.GetLevel(), logger.ReportCaller)
	}
}

func TestForRunAttachesRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger := Discard()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	ForRun(logger, "8f40cb4b-1c2d-4e5f-8a9b-0c1d2e3f4a5b", "/tmp/in/meeting.wav").Info("started")
	out := buf.String()
	if !strings.Contains(out, `"run":"8f40cb4b"`) || !strings.Contains(out, `"source":"meeting.wav"`) {
		t.Fatalf("missing run fields: %s", out)
	}
}
