package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	ModeStream = "stream"
	ModeMerge  = "merge"
)

// Options is the per-run transcription configuration. It is built once from
// Config plus command-line overrides and never mutated afterwards.
type Options struct {
	TagAudioEvents bool
	Format         string
	OutputFile     string
	OutputDir      string
	NumSpeakers    int
	Diarize        bool
	ShowTimestamp  bool
	Language       string
	SegmentLength  time.Duration
	Mode           string
	KeepSegments   bool
	Retries        int
}

// ConfigError reports a missing or invalid setting with a remediation hint.
type ConfigError struct {
	Field string
	Msg   string
	Hint  string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("configuration: %s: %s", e.Field, e.Msg)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Options returns the transcription defaults from the config file.
func (c *Config) Options() Options {
	t := c.Transcribe
	return Options{
		TagAudioEvents: t.TagAudioEvents,
		Format:         t.Format,
		OutputDir:      t.OutputDir,
		NumSpeakers:    t.NumSpeakers,
		Diarize:        t.Diarize,
		ShowTimestamp:  t.ShowTimestamp,
		Language:       t.Language,
		SegmentLength:  time.Duration(t.SegmentMinutes) * time.Minute,
		Mode:           t.Mode,
		KeepSegments:   t.KeepSegments,
		Retries:        t.Retries,
	}
}

// Validate checks option ranges and normalizes enum casing.
func (o *Options) Validate() error {
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	switch o.Format {
	case FormatText, FormatJSON:
	default:
		return &ConfigError{Field: "format", Msg: fmt.Sprintf("unknown format %q", o.Format), Hint: "use text or json"}
	}
	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	switch o.Mode {
	case "":
		o.Mode = ModeStream
	case ModeStream, ModeMerge:
	default:
		return &ConfigError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q", o.Mode), Hint: "use stream or merge"}
	}
	if o.NumSpeakers < 0 {
		return &ConfigError{Field: "num-speakers", Msg: "must not be negative", Hint: "use 0 to let the recognizer decide"}
	}
	if o.SegmentLength <= 0 {
		return &ConfigError{Field: "segment-minutes", Msg: "must be positive"}
	}
	if o.Retries < 0 {
		return &ConfigError{Field: "retries", Msg: "must not be negative"}
	}
	if o.OutputFile == "" && strings.TrimSpace(o.OutputDir) == "" {
		return &ConfigError{Field: "output-dir", Msg: "empty", Hint: "set --output or --output-dir"}
	}
	return nil
}

// RequireAPIKey returns the recognizer credential or a ConfigError.
func (c *Config) RequireAPIKey() (string, error) {
	key := strings.TrimSpace(c.Recognizer.APIKey)
	if key == "" {
		return "", &ConfigError{
			Field: APIKeyEnv,
			Msg:   "not set",
			Hint:  "export " + APIKeyEnv + " or add it to .env or recognizer.api_key in " + c.Paths.ConfigPath,
		}
	}
	return key, nil
}

// RecognizerTimeout is the per-request deadline for remote recognition.
func (c *Config) RecognizerTimeout() time.Duration {
	if c.Recognizer.TimeoutMin <= 0 {
		return defaultTimeoutMin * time.Minute
	}
	return time.Duration(c.Recognizer.TimeoutMin) * time.Minute
}
