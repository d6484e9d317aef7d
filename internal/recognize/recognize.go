package recognize

import (
	"context"
	"fmt"

	"scribe/internal/transcript"
)

// Request carries the per-run recognizer settings.
type Request struct {
	Diarize        bool
	NumSpeakers    int
	TagAudioEvents bool
	Language       string
}

// Recognizer turns one audio file into a word-level transcript.
type Recognizer interface {
	Recognize(ctx context.Context, path string, req Request) (transcript.Result, error)
}

// RecognitionError wraps a failed remote call for one chunk.
type RecognitionError struct {
	Chunk  string
	Status int
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("recognize %s: http %d: %v", e.Chunk, e.Status, e.Err)
	}
	return fmt.Sprintf("recognize %s: %v", e.Chunk, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
