package transcript

// UnknownSpeaker labels words the recognizer returned without a speaker.
const UnknownSpeaker = "unknown_speaker"

// Word is a single recognized token. Times are in seconds.
type Word struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
	SpeakerID  string
	Type       string
}

// Result is the recognizer output for one chunk, or several merged chunks.
type Result struct {
	Text                string
	LanguageCode        string
	LanguageProbability float64
	Words               []Word
}

// Utterance is a maximal run of words attributed to one speaker.
type Utterance struct {
	Speaker string
	Text    string
	Start   float64
}

// Sentence is a punctuation-delimited run of words.
type Sentence struct {
	Text  string
	Start float64
}
