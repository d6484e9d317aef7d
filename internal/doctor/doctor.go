package doctor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/hook"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
	// Optional checks are reported but never fail the run.
	Optional bool
}

// Run executes doctor checks.
func Run(ctx context.Context, cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkAPIKey(cfg),
		checkBaseURL(cfg.Recognizer.BaseURL),
		checkTool(ctx, "ffmpeg", cfg.Media.FFmpeg, false),
		checkTool(ctx, "ffprobe", cfg.Media.FFprobe, false),
		checkTool(ctx, "yt-dlp", cfg.Media.YTDLP, true),
		checkWritableDir("output dir", cfg.Transcribe.OutputDir),
		checkWritableDir("work dir", cfg.Media.WorkDir),
	}
	if cfg.Ledger.Enabled {
		results = append(results, checkWritableDir("ledger dir", filepath.Dir(cfg.Ledger.Path)))
	}
	if strings.TrimSpace(cfg.Hook.Command) != "" {
		results = append(results, checkHookExecutable(cfg.Hook.Command))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Pass && !r.Optional {
			return true
		}
	}
	return false
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkAPIKey(cfg *config.Config) Result {
	key, err := cfg.RequireAPIKey()
	if err != nil {
		return Result{Name: "api key", Pass: false, Detail: err.Error()}
	}
	return Result{Name: "api key", Pass: true, Detail: Mask(key)}
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}

func checkBaseURL(raw string) Result {
	u, err := url.Parse(raw)
	if err != nil {
		return Result{Name: "base url", Pass: false, Detail: err.Error()}
	}
	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return Result{Name: "base url", Pass: false, Detail: fmt.Sprintf("%q is not an http(s) URL", raw)}
	}
	return Result{Name: "base url", Pass: true, Detail: raw}
}

// checkTool resolves bin on PATH and reports the first line of its version output.
func checkTool(ctx context.Context, label, bin string, optional bool) Result {
	if bin == "" {
		return Result{Name: label, Pass: false, Detail: "not set", Optional: optional}
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		detail := err.Error()
		if optional {
			detail += " (only needed for URL inputs)"
		}
		return Result{Name: label, Pass: false, Detail: detail, Optional: optional}
	}
	flag := "-version"
	if label == "yt-dlp" {
		flag = "--version"
	}
	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(vctx, resolved, flag).Output()
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%s %s: %v", resolved, flag, err), Optional: optional}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s (%s)", resolved, strings.TrimSpace(first)), Optional: optional}
}

// checkWritableDir creates dir if needed and probes it with a temp file.
func checkWritableDir(label, dir string) Result {
	if strings.TrimSpace(dir) == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: "not writable: " + err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Result{Name: label, Pass: true, Detail: dir}
}

func checkHookExecutable(command string) Result {
	label := "hook.command"
	args, err := hook.ParseArgs(command)
	if err != nil || len(args) == 0 {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("cannot parse %q", command)}
	}
	path := os.ExpandEnv(args[0])
	if strings.ContainsRune(path, os.PathSeparator) {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set hook.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
