package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/logging"
)

func TestIsYouTubeURL(t *testing.T) {
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":   true,
		"https://youtube.com/watch?feature=share&v=abc": true,
		"https://m.youtube.com/shorts/abc123":           true,
		"http://youtu.be/abc123":                        true,
		"https://www.youtube.com/channel/UC123":         false,
		"https://example.com/watch?v=abc":               false,
		"/home/me/videos/youtube.com/watch?v=x.mp4":     false,
		"recording.mp3":                                 false,
	}
	for in, want := range cases {
		if got := IsYouTubeURL(in); got != want {
			t.Fatalf("IsYouTubeURL(%q)=%v want %v", in, got, want)
		}
	}
}

func TestIsVideo(t *testing.T) {
	if !IsVideo("a/B.MP4") || !IsVideo("x.webm") || IsVideo("x.mp3") || IsVideo("x.wav") {
		t.Fatalf("video detection wrong")
	}
}

type fakeConverter struct{ called bool }

func (f *fakeConverter) ExtractAudio(_ context.Context, videoPath, dir string) (string, error) {
	f.called = true
	return filepath.Join(dir, "out.mp3"), nil
}

type fakeDownloader struct{ err error }

func (f fakeDownloader) Download(_ context.Context, url, dir string) (Audio, error) {
	if f.err != nil {
		return Audio{}, f.err
	}
	return Audio{Path: filepath.Join(dir, "id.mp3"), Title: "A talk", URL: url}, nil
}

func newResolver(t *testing.T, d Downloader, c Converter) *Resolver {
	return &Resolver{Downloader: d, Converter: c, Logger: logging.Discard()}
}

func TestResolveAudioPassesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.m4a")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	conv := &fakeConverter{}
	a, err := newResolver(t, fakeDownloader{}, conv).Resolve(context.Background(), path, t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.Path != path || a.OriginalName != "" || conv.called {
		t.Fatalf("unexpected %+v converted=%v", a, conv.called)
	}
}

func TestResolveVideoConverts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	conv := &fakeConverter{}
	a, err := newResolver(t, fakeDownloader{}, conv).Resolve(context.Background(), path, t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !conv.called || a.OriginalName != "meeting.mp4" || filepath.Base(a.Path) != "out.mp3" {
		t.Fatalf("unexpected %+v", a)
	}
}

func TestResolveURL(t *testing.T) {
	a, err := newResolver(t, fakeDownloader{}, &fakeConverter{}).Resolve(context.Background(), "https://youtu.be/xyz", t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.Title != "A talk" || a.URL != "https://youtu.be/xyz" {
		t.Fatalf("unexpected %+v", a)
	}

	_, err = newResolver(t, fakeDownloader{err: errors.New("403")}, &fakeConverter{}).Resolve(context.Background(), "https://youtu.be/xyz", t.TempDir())
	var me *Error
	if !errors.As(err, &me) || me.Op != "download" {
		t.Fatalf("expected download error, got %v", err)
	}
}

func TestResolveMissingFile(t *testing.T) {
	_, err := newResolver(t, fakeDownloader{}, &fakeConverter{}).Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
	_, err = newResolver(t, fakeDownloader{}, &fakeConverter{}).Resolve(context.Background(), "https://example.com/a.mp3", t.TempDir())
	var me *Error
	if !errors.As(err, &me) || me.Op != "resolve" {
		t.Fatalf("expected unsupported URL error, got %v", err)
	}
}

func TestParsePrinted(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "abc.mp3")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, err := parsePrinted("My Title\nhttps://www.youtube.com/watch?v=abc\n"+file+"\n", "u")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Title != "My Title" || a.Path != file || a.URL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("unexpected %+v", a)
	}
	if _, err := parsePrinted("only one line\n", "u"); err == nil {
		t.Fatalf("expected error on short output")
	}
}
