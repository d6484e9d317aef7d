package transcript

import "strings"

var sentenceTerminals = map[string]bool{
	"。": true, "！": true, "？": true,
	".": true, "!": true, "?": true,
}

// IsSentenceTerminal reports whether text is exactly one terminal punctuation mark.
func IsSentenceTerminal(text string) bool {
	return sentenceTerminals[text]
}

// GroupBySpeaker folds words into utterances, starting a new one whenever the
// speaker changes. Text is appended verbatim; recognizers already carry spacing.
// Words with empty text carry nothing to attribute and never split a run.
func GroupBySpeaker(words []Word) []Utterance {
	var (
		out     []Utterance
		cur     strings.Builder
		speaker string
		start   float64
		active  bool
	)
	flush := func() {
		if active && cur.Len() > 0 {
			out = append(out, Utterance{Speaker: speaker, Text: cur.String(), Start: start})
		}
		cur.Reset()
	}
	for _, w := range words {
		if w.Text == "" {
			continue
		}
		id := w.SpeakerID
		if id == "" {
			id = UnknownSpeaker
		}
		if active && id == speaker {
			cur.WriteString(w.Text)
			continue
		}
		flush()
		active = true
		speaker = id
		start = w.Start
		cur.WriteString(w.Text)
	}
	flush()
	return out
}

// SplitSentences accumulates words until a standalone terminal token and
// emits trimmed, non-empty sentences. A trailing remainder is emitted too.
func SplitSentences(words []Word) []Sentence {
	var (
		out    []Sentence
		cur    strings.Builder
		start  float64
		active bool
	)
	flush := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			out = append(out, Sentence{Text: text, Start: start})
		}
		cur.Reset()
		active = false
	}
	for _, w := range words {
		if !active {
			active = true
			start = w.Start
		}
		cur.WriteString(w.Text)
		if IsSentenceTerminal(w.Text) {
			flush()
		}
	}
	flush()
	return out
}
