package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	APIKeyEnv            = "ELEVENLABS_API_KEY"
	DefaultModel         = "scribe_v1"
	DefaultBaseURL       = "https://api.elevenlabs.io"
	DefaultOutputDir     = "transcripts"
	DefaultSegmentMin    = 45
	defaultTimeoutMin    = 180
	defaultStateDirLinux = ".local/state/scribe"
	defaultConfigDir     = ".config/scribe"
)

// Config holds user configuration loaded from TOML (or YAML).
type Config struct {
	Recognizer struct {
		APIKey     string `toml:"api_key" yaml:"api_key"`
		BaseURL    string `toml:"base_url" yaml:"base_url"`
		Model      string `toml:"model" yaml:"model"`
		TimeoutMin int    `toml:"timeout_min" yaml:"timeout_min"`
	} `toml:"recognizer" yaml:"recognizer"`

	Transcribe struct {
		TagAudioEvents bool   `toml:"tag_audio_events" yaml:"tag_audio_events"`
		Format         string `toml:"format" yaml:"format"` // text, json
		OutputDir      string `toml:"output_dir" yaml:"output_dir"`
		NumSpeakers    int    `toml:"num_speakers" yaml:"num_speakers"`
		Diarize        bool   `toml:"diarize" yaml:"diarize"`
		ShowTimestamp  bool   `toml:"show_timestamp" yaml:"show_timestamp"`
		Language       string `toml:"language" yaml:"language"`
		SegmentMinutes int    `toml:"segment_minutes" yaml:"segment_minutes"`
		Mode           string `toml:"mode" yaml:"mode"` // stream, merge
		KeepSegments   bool   `toml:"keep_segments" yaml:"keep_segments"`
		Retries        int    `toml:"retries" yaml:"retries"`
	} `toml:"transcribe" yaml:"transcribe"`

	Media struct {
		FFmpeg     string `toml:"ffmpeg" yaml:"ffmpeg"`
		FFprobe    string `toml:"ffprobe" yaml:"ffprobe"`
		YTDLP      string `toml:"ytdlp" yaml:"ytdlp"`
		YTDLPArgs  string `toml:"ytdlp_args" yaml:"ytdlp_args"`
		FFmpegArgs string `toml:"ffmpeg_args" yaml:"ffmpeg_args"`
		WorkDir    string `toml:"work_dir" yaml:"work_dir"`
	} `toml:"media" yaml:"media"`

	Logging struct {
		Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
		Format string `toml:"format" yaml:"format"` // text, json
		Stdout bool   `toml:"stdout" yaml:"stdout"`
	} `toml:"logging" yaml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir" yaml:"state_dir"`
		LogPath    string `toml:"log_path" yaml:"log_path"`
		ConfigPath string `toml:"-" yaml:"-"`
	} `toml:"paths" yaml:"paths"`

	Ledger struct {
		Enabled bool   `toml:"enabled" yaml:"enabled"`
		Path    string `toml:"path" yaml:"path"`
	} `toml:"ledger" yaml:"ledger"`

	Hook struct {
		Command    string            `toml:"command" yaml:"command"`
		TimeoutSec float64           `toml:"timeout_sec" yaml:"timeout_sec"`
		Env        map[string]string `toml:"env" yaml:"env"`
	} `toml:"hook" yaml:"hook"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "scribe")
	}

	cfg := &Config{}

	cfg.Recognizer.BaseURL = DefaultBaseURL
	cfg.Recognizer.Model = DefaultModel
	cfg.Recognizer.TimeoutMin = defaultTimeoutMin

	cfg.Transcribe.TagAudioEvents = true
	cfg.Transcribe.Format = FormatText
	cfg.Transcribe.OutputDir = DefaultOutputDir
	cfg.Transcribe.Diarize = true
	cfg.Transcribe.ShowTimestamp = true
	cfg.Transcribe.SegmentMinutes = DefaultSegmentMin
	cfg.Transcribe.Mode = ModeStream
	cfg.Transcribe.KeepSegments = true

	cfg.Media.FFmpeg = "ffmpeg"
	cfg.Media.FFprobe = "ffprobe"
	cfg.Media.YTDLP = "yt-dlp"
	cfg.Media.WorkDir = filepath.Join(stateDir, "work")

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = true

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "scribe.log")

	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = filepath.Join(stateDir, "history.db")

	cfg.Hook.TimeoutSec = 30
	cfg.Hook.Env = map[string]string{}

	return cfg, nil
}

// Load loads config from file, applying defaults, .env files and env overrides.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	} else if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	loadDotEnv()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path. The encoding follows the file extension.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		out []byte
		err error
	)
	if isYAML(path) {
		out, err = yaml.Marshal(cfg)
	} else {
		out, err = toml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return toml.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// loadDotEnv reads ./.env and ~/.config/scribe/.env. Existing variables win.
func loadDotEnv() {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, defaultConfigDir, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(APIKeyEnv); v != "" {
		cfg.Recognizer.APIKey = v
	}
	if v := os.Getenv("SCRIBE_BASE_URL"); v != "" {
		cfg.Recognizer.BaseURL = v
	}
	if v := os.Getenv("SCRIBE_OUTPUT_DIR"); v != "" {
		cfg.Transcribe.OutputDir = v
	}
	if v := os.Getenv("SCRIBE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCRIBE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SCRIBE_LEDGER_ENABLED"); v != "" {
		cfg.Ledger.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("SCRIBE_KEEP_SEGMENTS"); v != "" {
		cfg.Transcribe.KeepSegments = v != "0" && strings.ToLower(v) != "false"
	}
}
