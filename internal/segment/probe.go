package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// ProbeError means the duration of a media file could not be determined.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Prober reports the playback duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

var errNotWAV = errors.New("not a wav file")

// WAVProber reads the duration from RIFF/WAVE headers without external tools.
type WAVProber struct{}

func (WAVProber) Duration(_ context.Context, path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errNotWAV
	}
	return dec.Duration()
}

// FFProbe asks ffprobe for the container duration.
type FFProbe struct {
	Bin string
}

func (p FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseSeconds(string(out))
}

func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("no duration reported")
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// ChainProber tries each prober in order and returns the first positive duration.
type ChainProber []Prober

func (c ChainProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	var errs []error
	for _, p := range c {
		d, err := p.Duration(ctx, path)
		if err == nil && d > 0 {
			return d, nil
		}
		if err == nil {
			err = fmt.Errorf("non-positive duration %v", d)
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("no prober configured")
	}
	return 0, errors.Join(errs...)
}
