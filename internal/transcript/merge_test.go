package transcript

import (
	"testing"
	"time"
)

func TestShiftOffsetsWords(t *testing.T) {
	r := Result{Text: "hi", Words: []Word{{Text: "hi", Start: 1, End: 1.5}}}
	got := Shift(r, 45*time.Minute)
	if got.Words[0].Start != 2701 || got.Words[0].End != 2701.5 {
		t.Fatalf("unexpected shift: %+v", got.Words[0])
	}
	if r.Words[0].Start != 1 {
		t.Fatalf("input mutated: %+v", r.Words[0])
	}
}

func TestMergePreservesOrder(t *testing.T) {
	a := Result{Text: "one", LanguageCode: "eng", LanguageProbability: 0.8, Words: []Word{{Text: "one"}}}
	b := Result{Text: "", LanguageProbability: 1.0}
	c := Result{Text: "two", LanguageCode: "jpn", LanguageProbability: 0.6, Words: []Word{{Text: "two"}, {Text: "three"}}}
	got := Merge(a, b, c)
	if got.Text != "one two" {
		t.Fatalf("text=%q", got.Text)
	}
	if got.LanguageCode != "eng" {
		t.Fatalf("language=%q", got.LanguageCode)
	}
	if len(got.Words) != 3 || got.Words[0].Text != "one" || got.Words[2].Text != "three" {
		t.Fatalf("words=%+v", got.Words)
	}
	if got.LanguageProbability < 0.79 || got.LanguageProbability > 0.81 {
		t.Fatalf("probability=%v", got.LanguageProbability)
	}
}

func TestMergeEmpty(t *testing.T) {
	got := Merge()
	if got.Text != "" || len(got.Words) != 0 || got.LanguageProbability != 0 {
		t.Fatalf("unexpected %+v", got)
	}
}
