package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"scribe/internal/config"
	"scribe/internal/transcript"
)

// Formatter renders one transcript result into bytes ready to append.
type Formatter interface {
	Format(r transcript.Result) ([]byte, error)
}

// New picks the formatter for the configured output format.
func New(opts config.Options) Formatter {
	if opts.Format == config.FormatJSON {
		return JSONFormatter{Diarize: opts.Diarize}
	}
	return TextFormatter{Diarize: opts.Diarize, ShowTimestamp: opts.ShowTimestamp}
}

// TextFormatter writes one line per utterance, or per sentence without diarization.
type TextFormatter struct {
	Diarize       bool
	ShowTimestamp bool
}

func (f TextFormatter) Format(r transcript.Result) ([]byte, error) {
	var b strings.Builder
	if f.Diarize {
		for _, u := range transcript.GroupBySpeaker(r.Words) {
			f.prefix(&b, u.Start)
			fmt.Fprintf(&b, "%s: %s\n", u.Speaker, strings.TrimSpace(u.Text))
		}
	} else {
		for _, s := range transcript.SplitSentences(r.Words) {
			f.prefix(&b, s.Start)
			b.WriteString(s.Text)
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

func (f TextFormatter) prefix(b *strings.Builder, sec float64) {
	if f.ShowTimestamp {
		fmt.Fprintf(b, "[%s] ", Clock(sec))
	}
}

// Clock formats seconds as HH:MM:SS.
func Clock(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	s := int64(sec)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// JSONFormatter writes one indented object per result.
type JSONFormatter struct {
	Diarize bool
}

type jsonWord struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	SpeakerID  string  `json:"speaker_id,omitempty"`
}

// Document is the JSON shape of one transcript result.
type Document struct {
	Text                string     `json:"text"`
	LanguageCode        string     `json:"language_code,omitempty"`
	LanguageProbability float64    `json:"language_probability"`
	Words               []jsonWord `json:"words"`
}

func (f JSONFormatter) Format(r transcript.Result) ([]byte, error) {
	doc := Document{
		Text:                r.Text,
		LanguageCode:        r.LanguageCode,
		LanguageProbability: r.LanguageProbability,
		Words:               make([]jsonWord, 0, len(r.Words)),
	}
	for _, w := range r.Words {
		jw := jsonWord{Text: w.Text, Start: w.Start, End: w.End, Type: w.Type, Confidence: w.Confidence}
		if f.Diarize {
			jw.SpeakerID = w.SpeakerID
		}
		doc.Words = append(doc.Words, jw)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document written by JSONFormatter back into a result.
func Decode(data []byte) (transcript.Result, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return transcript.Result{}, err
	}
	out := transcript.Result{
		Text:                doc.Text,
		LanguageCode:        doc.LanguageCode,
		LanguageProbability: doc.LanguageProbability,
		Words:               make([]transcript.Word, len(doc.Words)),
	}
	for i, w := range doc.Words {
		out.Words[i] = transcript.Word{
			Text: w.Text, Start: w.Start, End: w.End, Type: w.Type,
			Confidence: w.Confidence, SpeakerID: w.SpeakerID,
		}
	}
	return out, nil
}
