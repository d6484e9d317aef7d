package media

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Error reports a failed acquisition or conversion step.
type Error struct {
	Op    string
	Input string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Input, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Audio is a local audio file ready for segmentation.
type Audio struct {
	Path string
	// OriginalName is the input file name when Path was derived from a video.
	OriginalName string
	Title        string
	URL          string
}

var youtubeRE = regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)*(youtube\.com/(watch\?.*v=|shorts/)|youtu\.be/)`)

// IsYouTubeURL reports whether s looks like a watch, shorts or short-link URL.
func IsYouTubeURL(s string) bool {
	return youtubeRE.MatchString(strings.TrimSpace(s))
}

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".flv": true, ".m4v": true, ".wmv": true, ".mpg": true, ".mpeg": true,
}

// IsVideo reports whether path has a known video container extension.
func IsVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// Resolver turns a user input (path or URL) into a local audio file.
type Resolver struct {
	Downloader Downloader
	Converter  Converter
	Logger     *logrus.Logger
}

// Resolve downloads URLs and converts video files into dir; audio paths
// pass through untouched.
func (r *Resolver) Resolve(ctx context.Context, input, dir string) (Audio, error) {
	if IsYouTubeURL(input) {
		r.Logger.Infof("downloading audio from %s", input)
		a, err := r.Downloader.Download(ctx, input, dir)
		if err != nil {
			return Audio{}, &Error{Op: "download", Input: input, Err: err}
		}
		return a, nil
	}
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return Audio{}, &Error{Op: "resolve", Input: input, Err: fmt.Errorf("unsupported URL")}
	}
	info, err := os.Stat(input)
	if err != nil {
		return Audio{}, &Error{Op: "open", Input: input, Err: err}
	}
	if info.IsDir() {
		return Audio{}, &Error{Op: "open", Input: input, Err: fmt.Errorf("is a directory")}
	}
	if !IsVideo(input) {
		return Audio{Path: input}, nil
	}
	r.Logger.Infof("extracting audio from video %s", filepath.Base(input))
	out, err := r.Converter.ExtractAudio(ctx, input, dir)
	if err != nil {
		return Audio{}, &Error{Op: "convert", Input: input, Err: err}
	}
	return Audio{Path: out, OriginalName: filepath.Base(input)}, nil
}
