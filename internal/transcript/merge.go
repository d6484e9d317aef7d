package transcript

import (
	"strings"
	"time"
)

// Shift returns a copy of r with every word moved by offset, turning
// chunk-relative times into times relative to the whole source.
func Shift(r Result, offset time.Duration) Result {
	sec := offset.Seconds()
	out := r
	out.Words = make([]Word, len(r.Words))
	for i, w := range r.Words {
		w.Start += sec
		w.End += sec
		out.Words[i] = w
	}
	return out
}

// Merge concatenates chunk results in order. Speaker ids are taken as the
// recognizer returned them; no reconciliation across chunks is attempted.
func Merge(results ...Result) Result {
	var (
		out   Result
		texts []string
		prob  float64
		n     int
	)
	for _, r := range results {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
		if out.LanguageCode == "" {
			out.LanguageCode = r.LanguageCode
		}
		out.Words = append(out.Words, r.Words...)
		prob += r.LanguageProbability
		n++
	}
	out.Text = strings.Join(texts, " ")
	if n > 0 {
		out.LanguageProbability = prob / float64(n)
	}
	return out
}
