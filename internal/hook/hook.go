// Package hook hands finished transcriptions to an external command, e.g. a
// tool that types the text into the focused window.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"wispr/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Job is one transcription to deliver.
type Job struct {
	Text      string
	RawText   string
	Timestamp time.Time
}

// Runner executes the configured command.
type Runner struct {
	cfg      *config.Config
	logger   *logrus.Logger
	hostname string
}

func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	host, _ := os.Hostname()
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		hostname: host,
	}
}

// Enabled reports whether a command is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.cfg.Hook.Command) != ""
}

// Run executes the command with prefix+text as its last argument.
func (r *Runner) Run(ctx context.Context, job Job) error {
	argv, err := r.argv()
	if err != nil {
		return err
	}

	prefix := strings.ReplaceAll(r.cfg.Hook.Prefix, "${hostname}", r.hostname)
	text, raw := job.Text, job.RawText
	if r.cfg.Hook.RedactPII {
		text = redactPII(text)
		raw = redactPII(raw)
	}
	payload := strings.TrimSpace(prefix + text)
	argv = append(argv, payload)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Hook.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("WISPR_TEXT=%s", text),
		fmt.Sprintf("WISPR_RAW_TEXT=%s", raw),
		fmt.Sprintf("WISPR_PREFIX=%s", prefix),
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

// argv splits hook.command with shell quoting and appends hook.args.
func (r *Runner) argv() ([]string, error) {
	cmdStr := strings.TrimSpace(r.cfg.Hook.Command)
	if cmdStr == "" {
		return nil, fmt.Errorf("no hook.command configured")
	}
	argv, err := ParseArgs(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("parse hook.command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("no hook.command configured")
	}
	return append(argv, r.cfg.Hook.Args...), nil
}

// ParseArgs splits a command line the way a POSIX shell would.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}

var (
	emailRE = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{6,}\d`)
)

func redactPII(s string) string {
	s = emailRE.ReplaceAllString(s, "[redacted-email]")
	s = phoneRE.ReplaceAllString(s, "[redacted-phone]")
	return s
}
