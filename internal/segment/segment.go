package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Segment is one bounded slice of the source audio.
type Segment struct {
	Index    int
	Path     string
	Offset   time.Duration
	Duration time.Duration
	// Direct is set when the segment is the source file itself.
	Direct bool
}

// Plan divides total into ceil(total/length) consecutive slices.
func Plan(total, length time.Duration) []Segment {
	if total <= 0 {
		return nil
	}
	if length <= 0 || length >= total {
		return []Segment{{Index: 0, Offset: 0, Duration: total}}
	}
	n := int((total + length - 1) / length)
	segs := make([]Segment, n)
	for i := range segs {
		off := time.Duration(i) * length
		segs[i] = Segment{Index: i, Offset: off, Duration: min(length, total-off)}
	}
	return segs
}

// Extractor cuts [offset, offset+duration) of src into dst.
type Extractor interface {
	Extract(ctx context.Context, src, dst string, offset, duration time.Duration) error
}

// FFmpeg extracts slices re-encoded as MP3.
type FFmpeg struct {
	Bin string
	// Args are extra encoder arguments placed before the output path.
	Args string
}

func (f FFmpeg) Extract(ctx context.Context, src, dst string, offset, duration time.Duration) error {
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	extra, err := shlex.Split(f.Args)
	if err != nil {
		return fmt.Errorf("parse ffmpeg args: %w", err)
	}
	args := []string{
		"-y", "-loglevel", "error",
		"-ss", formatSeconds(offset),
		"-t", formatSeconds(duration),
		"-i", src,
		"-vn", "-acodec", "libmp3lame", "-q:a", "2",
	}
	args = append(args, extra...)
	args = append(args, dst)
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// Segmenter turns a long audio file into recognizer-sized segments.
type Segmenter struct {
	Prober    Prober
	Extractor Extractor
	Logger    *logrus.Logger
}

// Split probes src and extracts segments of at most length into dir,
// one after another. A source that fits in one segment is returned as-is
// without re-encoding. On an extract error the segments attempted so far are
// returned with the error so the caller can remove them.
func (s *Segmenter) Split(ctx context.Context, src string, length time.Duration, dir string) ([]Segment, error) {
	total, err := s.Prober.Duration(ctx, src)
	if err != nil {
		return nil, &ProbeError{Path: src, Err: err}
	}
	segs := Plan(total, length)
	if len(segs) == 0 {
		return nil, &ProbeError{Path: src, Err: fmt.Errorf("empty media")}
	}
	s.Logger.Infof("audio length %s, %d segment(s) of up to %s", total.Round(time.Second), len(segs), length)
	if len(segs) == 1 {
		segs[0].Path = src
		segs[0].Direct = true
		return segs, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	for i := range segs {
		seg := &segs[i]
		seg.Path = filepath.Join(dir, fmt.Sprintf("segment_%03d.mp3", seg.Index))
		s.Logger.Debugf("extracting segment %d at %s (%s)", seg.Index, seg.Offset, seg.Duration)
		if err := s.Extractor.Extract(ctx, src, seg.Path, seg.Offset, seg.Duration); err != nil {
			return segs[:i+1], fmt.Errorf("extract segment %d: %w", seg.Index, err)
		}
	}
	s.Logger.Infof("segments written to %s", dir)
	return segs, nil
}

// Cleanup removes extracted segment files and dir, leaving direct sources alone.
func (s *Segmenter) Cleanup(segs []Segment, dir string) error {
	var errs []error
	for _, seg := range segs {
		if seg.Direct || seg.Path == "" {
			continue
		}
		if err := os.Remove(seg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	// Only succeeds when the directory is empty.
	_ = os.Remove(dir)
	return errors.Join(errs...)
}
