package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/config"
)

// Source describes where the audio came from.
type Source struct {
	// Path is the file handed to the recognizer pipeline.
	Path string
	// OriginalName is set when Path was converted from another file.
	OriginalName string
	Title        string
	URL          string
}

// DisplayName is the file name shown in the header.
func (s Source) DisplayName() string {
	if s.OriginalName != "" {
		return s.OriginalName
	}
	return filepath.Base(s.Path)
}

const sectionMarker = "===== Conversation ====="

// RenderHeader renders the comment block written before any transcript content.
func RenderHeader(src Source, opts config.Options, generated time.Time) string {
	var b strings.Builder
	b.WriteString("# Transcript\n")
	if src.Title != "" {
		fmt.Fprintf(&b, "# Title: %s\n", src.Title)
	}
	if src.URL != "" {
		fmt.Fprintf(&b, "# URL: %s\n", src.URL)
	}
	fmt.Fprintf(&b, "# Source: %s\n", src.DisplayName())
	fmt.Fprintf(&b, "# Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	speakers := "auto"
	if opts.NumSpeakers > 0 {
		speakers = fmt.Sprint(opts.NumSpeakers)
	}
	fmt.Fprintf(&b, "# Settings: language=%s, diarize=%s, audio_events=%s, speakers=%s, format=%s, mode=%s\n",
		lang, onOff(opts.Diarize), onOff(opts.TagAudioEvents), speakers, opts.Format, opts.Mode)
	b.WriteString("\n")
	if opts.Format == config.FormatText {
		b.WriteString(sectionMarker + "\n\n")
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// TimestampName returns dir/transcript_YYYYMMDD_HHMMSS.txt.
func TimestampName(dir string, now time.Time) string {
	return filepath.Join(dir, "transcript_"+now.Format("20060102_150405")+".txt")
}
