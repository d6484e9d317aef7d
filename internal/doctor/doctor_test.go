package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	dir := t.TempDir()
	cfg.Paths.ConfigPath = filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg.Paths.ConfigPath, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg.Transcribe.OutputDir = filepath.Join(dir, "out")
	cfg.Media.WorkDir = filepath.Join(dir, "work")
	cfg.Ledger.Path = filepath.Join(dir, "state", "history.db")
	cfg.Recognizer.APIKey = "sk-test-abcd1234"
	return cfg
}

func byName(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.Name] = r
	}
	return m
}

func TestRunAllPass(t *testing.T) {
	bin := t.TempDir()
	writeScript(t, bin, "ffmpeg", `echo "ffmpeg version 6.1 Copyright"`)
	writeScript(t, bin, "ffprobe", `echo "ffprobe version 6.1"`)
	writeScript(t, bin, "yt-dlp", `echo "2024.05.01"`)
	t.Setenv("PATH", bin)

	cfg := testConfig(t)
	results := Run(context.Background(), cfg)
	if Failed(results) {
		t.Fatalf("unexpected failures: %+v", results)
	}
	m := byName(results)
	if !strings.Contains(m["ffmpeg"].Detail, "ffmpeg version 6.1") {
		t.Fatalf("ffmpeg detail %q", m["ffmpeg"].Detail)
	}
	if m["api key"].Detail != "********1234" {
		t.Fatalf("api key not masked: %q", m["api key"].Detail)
	}
	if _, ok := m["hook.command"]; ok {
		t.Fatalf("hook check should be skipped when unset")
	}
	if _, err := os.Stat(cfg.Transcribe.OutputDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestMissingYTDLPIsOptional(t *testing.T) {
	bin := t.TempDir()
	writeScript(t, bin, "ffmpeg", `echo ffmpeg`)
	writeScript(t, bin, "ffprobe", `echo ffprobe`)
	t.Setenv("PATH", bin)

	results := Run(context.Background(), testConfig(t))
	m := byName(results)
	if m["yt-dlp"].Pass || !m["yt-dlp"].Optional {
		t.Fatalf("unexpected yt-dlp result %+v", m["yt-dlp"])
	}
	if Failed(results) {
		t.Fatalf("optional failure should not fail doctor: %+v", results)
	}
}

func TestMissingKeyAndFFmpegFail(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := testConfig(t)
	cfg.Recognizer.APIKey = ""
	results := Run(context.Background(), cfg)
	if !Failed(results) {
		t.Fatalf("expected failures")
	}
	m := byName(results)
	if m["api key"].Pass || !strings.Contains(m["api key"].Detail, config.APIKeyEnv) {
		t.Fatalf("unexpected api key result %+v", m["api key"])
	}
	if m["ffmpeg"].Pass {
		t.Fatalf("ffmpeg should fail when missing")
	}
}

func TestCheckHookExecutable(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "notify.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := checkHookExecutable(script + " --flag"); r.Pass {
		t.Fatalf("non-executable hook should fail: %+v", r)
	}
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if r := checkHookExecutable(script + " --flag"); !r.Pass || r.Detail != script {
		t.Fatalf("executable hook should pass: %+v", r)
	}
	if r := checkHookExecutable(dir); r.Pass {
		t.Fatalf("directory hook should fail")
	}
}

func TestCheckBaseURL(t *testing.T) {
	cases := map[string]bool{
		"https://api.elevenlabs.io": true,
		"http://127.0.0.1:8080":     true,
		"ftp://example.com":         false,
		"api.elevenlabs.io":         false,
	}
	for raw, want := range cases {
		if got := checkBaseURL(raw).Pass; got != want {
			t.Fatalf("checkBaseURL(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"abc":       "***",
		"abcdefghi": "********fghi",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Fatalf("Mask(%q)=%q want %q", in, got, want)
		}
	}
}
