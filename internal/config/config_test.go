package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv(APIKeyEnv, "sk-test")
	t.Setenv("SCRIBE_LOG_LEVEL", "debug")
	t.Setenv("SCRIBE_LOG_FORMAT", "json")
	t.Setenv("SCRIBE_OUTPUT_DIR", "/tmp/out")
	t.Setenv("SCRIBE_LEDGER_ENABLED", "0")
	t.Setenv("SCRIBE_KEEP_SEGMENTS", "false")

	applyEnvOverrides(cfg)

	if cfg.Recognizer.APIKey != "sk-test" {
		t.Fatalf("api key override failed")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Transcribe.OutputDir != "/tmp/out" {
		t.Fatalf("output dir override failed: %q", cfg.Transcribe.OutputDir)
	}
	if cfg.Ledger.Enabled {
		t.Fatalf("ledger should be disabled via env")
	}
	if cfg.Transcribe.KeepSegments {
		t.Fatalf("keep segments should be disabled via env")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Transcribe.NumSpeakers = 3
	cfg.Transcribe.Mode = ModeMerge
	cfg.Hook.Command = "/bin/echo done"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Transcribe.NumSpeakers != 3 || loaded.Transcribe.Mode != ModeMerge {
		t.Fatalf("transcribe section not persisted: %+v", loaded.Transcribe)
	}
	if loaded.Hook.Command != "/bin/echo done" {
		t.Fatalf("expected hook command to persist")
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path = %q", loaded.Paths.ConfigPath)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("SCRIBE_OUTPUT_DIR", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("transcribe:\n  format: json\n  segment_minutes: 10\n  diarize: false\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transcribe.Format != FormatJSON || cfg.Transcribe.SegmentMinutes != 10 || cfg.Transcribe.Diarize {
		t.Fatalf("yaml values not applied: %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.OutputDir != DefaultOutputDir {
		t.Fatalf("defaults lost: %q", cfg.Transcribe.OutputDir)
	}
}

func TestLoadWritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	cfg, _ := Default()
	opts := cfg.Options()
	if !opts.TagAudioEvents || !opts.Diarize || !opts.ShowTimestamp {
		t.Fatalf("boolean defaults wrong: %+v", opts)
	}
	if opts.Format != FormatText || opts.OutputDir != "transcripts" || opts.NumSpeakers != 0 {
		t.Fatalf("defaults wrong: %+v", opts)
	}
	if opts.SegmentLength != 45*time.Minute {
		t.Fatalf("segment length = %v", opts.SegmentLength)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"format", func(o *Options) { o.Format = "xml" }, "format"},
		{"mode", func(o *Options) { o.Mode = "parallel" }, "mode"},
		{"speakers", func(o *Options) { o.NumSpeakers = -1 }, "num-speakers"},
		{"segment", func(o *Options) { o.SegmentLength = 0 }, "segment-minutes"},
		{"retries", func(o *Options) { o.Retries = -2 }, "retries"},
		{"output", func(o *Options) { o.OutputDir = " " }, "output-dir"},
	}
	for _, c := range cases {
		cfg, _ := Default()
		opts := cfg.Options()
		c.mut(&opts)
		err := opts.Validate()
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConfigError, got %v", c.name, err)
		}
		if ce.Field != c.field {
			t.Fatalf("%s: field=%q want %q", c.name, ce.Field, c.field)
		}
	}
}

func TestOptionsValidateNormalizes(t *testing.T) {
	cfg, _ := Default()
	opts := cfg.Options()
	opts.Format = " JSON "
	opts.Mode = ""
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if opts.Format != FormatJSON || opts.Mode != ModeStream {
		t.Fatalf("not normalized: %+v", opts)
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg, _ := Default()
	cfg.Paths.ConfigPath = "/tmp/scribe.toml"
	_, err := cfg.RequireAPIKey()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != APIKeyEnv {
		t.Fatalf("expected missing key error, got %v", err)
	}
	cfg.Recognizer.APIKey = " sk "
	key, err := cfg.RequireAPIKey()
	if err != nil || key != "sk" {
		t.Fatalf("key=%q err=%v", key, err)
	}
}
