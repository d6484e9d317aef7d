package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// Downloader fetches the audio track of a video URL.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (Audio, error)
}

// YTDLP downloads with yt-dlp and reports title and canonical URL.
type YTDLP struct {
	Bin string
	// Args are extra yt-dlp arguments, split shell-style.
	Args string
}

func (y YTDLP) Download(ctx context.Context, url, dir string) (Audio, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Audio{}, err
	}
	bin := y.Bin
	if bin == "" {
		bin = "yt-dlp"
	}
	extra, err := shlex.Split(y.Args)
	if err != nil {
		return Audio{}, fmt.Errorf("parse ytdlp args: %w", err)
	}
	args := []string{
		"--no-playlist", "--no-progress", "--quiet", "--no-simulate",
		"-x", "--audio-format", "mp3",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--print", "before_dl:%(title)s",
		"--print", "before_dl:%(webpage_url)s",
		"--print", "after_move:filepath",
	}
	args = append(args, extra...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Audio{}, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parsePrinted(stdout.String(), url)
}

// parsePrinted reads the three --print lines: title, URL, final file path.
func parsePrinted(out, fallbackURL string) (Audio, error) {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return Audio{}, fmt.Errorf("unexpected yt-dlp output: %q", out)
	}
	a := Audio{
		Title: lines[0],
		URL:   lines[1],
		Path:  lines[len(lines)-1],
	}
	if a.URL == "NA" || a.URL == "" {
		a.URL = fallbackURL
	}
	if _, err := os.Stat(a.Path); err != nil {
		return Audio{}, fmt.Errorf("downloaded file: %w", err)
	}
	return a, nil
}
