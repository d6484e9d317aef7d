package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Converter extracts an audio track from a video file.
type Converter interface {
	ExtractAudio(ctx context.Context, videoPath, dir string) (string, error)
}

// FFmpeg converts with the ffmpeg binary.
type FFmpeg struct {
	Bin string
}

// ExtractAudio writes the audio track of videoPath as MP3 into dir and
// returns the new path.
func (f FFmpeg) ExtractAudio(ctx context.Context, videoPath, dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	out := filepath.Join(dir, base+"_audio.mp3")

	// ffmpeg -y -i input -vn -acodec libmp3lame -q:a 2 output
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-loglevel", "error",
		"-i", videoPath,
		"-vn", "-acodec", "libmp3lame", "-q:a", "2",
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(b)))
	}
	return out, nil
}
