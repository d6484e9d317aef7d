package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scribe/internal/transcript"
)

// ElevenLabs speech-to-text.
// POST {base}/v1/speech-to-text with the xi-api-key header.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// NewElevenLabs builds a client. timeout bounds a single request, upload
// included; long segments can take hours on the remote side.
func NewElevenLabs(apiKey, baseURL, model string, timeout time.Duration) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: timeout},
	}
}

type elWord struct {
	Text      *string  `json:"text"`
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	Type      *string  `json:"type"`
	SpeakerID *string  `json:"speaker_id"`
	Logprob   *float64 `json:"logprob"`
}

type elResp struct {
	LanguageCode        string   `json:"language_code"`
	LanguageProbability *float64 `json:"language_probability"`
	Text                string   `json:"text"`
	Words               []elWord `json:"words"`
}

func (c *ElevenLabs) Recognize(ctx context.Context, path string, req Request) (transcript.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return transcript.Result{}, &RecognitionError{Chunk: path, Err: err}
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(mw, f, filepath.Base(path), req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", pr)
	if err != nil {
		pr.Close()
		return transcript.Result{}, &RecognitionError{Chunk: path, Err: err}
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		pr.Close()
		return transcript.Result{}, &RecognitionError{Chunk: path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return transcript.Result{}, &RecognitionError{Chunk: path, Status: resp.StatusCode, Err: errors.New(apiMessage(b))}
	}
	var raw elResp
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return transcript.Result{}, &RecognitionError{Chunk: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return normalize(raw), nil
}

func (c *ElevenLabs) writeForm(mw *multipart.Writer, audio io.Reader, name string, req Request) error {
	fields := [][2]string{
		{"model_id", c.model},
		{"diarize", strconv.FormatBool(req.Diarize)},
		{"tag_audio_events", strconv.FormatBool(req.TagAudioEvents)},
		{"timestamps_granularity", "word"},
	}
	if req.Diarize && req.NumSpeakers > 0 {
		fields = append(fields, [2]string{"num_speakers", strconv.Itoa(req.NumSpeakers)})
	}
	if req.Language != "" {
		fields = append(fields, [2]string{"language_code", req.Language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return err
	}
	return mw.Close()
}

// normalize fills defaults for every optional field in the payload.
func normalize(raw elResp) transcript.Result {
	out := transcript.Result{
		Text:         raw.Text,
		LanguageCode: raw.LanguageCode,
		Words:        make([]transcript.Word, 0, len(raw.Words)),
	}
	if raw.LanguageProbability != nil {
		out.LanguageProbability = *raw.LanguageProbability
	}
	for _, w := range raw.Words {
		word := transcript.Word{Confidence: 1, Type: "word"}
		if w.Text != nil {
			word.Text = *w.Text
		}
		if w.Start != nil {
			word.Start = *w.Start
		}
		if w.End != nil {
			word.End = *w.End
		}
		if w.Type != nil && *w.Type != "" {
			word.Type = *w.Type
		}
		if w.SpeakerID != nil {
			word.SpeakerID = *w.SpeakerID
		}
		if w.Logprob != nil {
			word.Confidence = clamp01(math.Exp(*w.Logprob))
		}
		out.Words = append(out.Words, word)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// apiMessage extracts a readable message from an error body.
func apiMessage(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && len(e.Detail) > 0 {
		var d struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Detail, &d) == nil && d.Message != "" {
			if d.Status != "" {
				return d.Status + ": " + d.Message
			}
			return d.Message
		}
		var s string
		if json.Unmarshal(e.Detail, &s) == nil && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty error response"
	}
	return msg
}
