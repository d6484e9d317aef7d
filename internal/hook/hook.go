package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"scribe/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Job describes a finished transcript handed to the hook.
type Job struct {
	RunID  string
	Output string
	Source string
	Chunks int
}

// Runner executes the configured post-run command.
type Runner struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Enabled reports whether a hook command is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.cfg.Hook.Command) != ""
}

// Run executes the hook with the output path appended as the last argument.
func (r *Runner) Run(ctx context.Context, job Job) error {
	args, err := ParseArgs(r.cfg.Hook.Command)
	if err != nil {
		return fmt.Errorf("parse hook.command: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("no hook.command configured")
	}
	args = append(args, job.Output)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Hook.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		"SCRIBE_OUTPUT="+job.Output,
		"SCRIBE_SOURCE="+job.Source,
		"SCRIBE_RUN_ID="+job.RunID,
		fmt.Sprintf("SCRIBE_CHUNKS=%d", job.Chunks),
	)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// ParseArgs splits a command line shell-style.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}
