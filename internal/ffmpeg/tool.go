// Package ffmpeg wraps the external ffmpeg/ffprobe executables used by every
// transformation.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// ToolError is a failed ffmpeg/ffprobe invocation with its command context.
type ToolError struct {
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats tool failures with the tail of stderr.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s (cmd=%s exit=%d)", e.Message, e.CommandLog.Command, e.CommandLog.ExitCode)
	if tail := stderrTail(e.CommandLog.Stderr, 3); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Result is a process execution response.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Tool runs ffmpeg and ffprobe with a fixed preamble.
type Tool struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
	onLog       func(CommandLog)
}

// Option customizes a Tool.
type Option func(*Tool)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegPath, ffprobePath string) Option {
	return func(t *Tool) {
		if strings.TrimSpace(ffmpegPath) != "" {
			t.ffmpegPath = ffmpegPath
		}
		if strings.TrimSpace(ffprobePath) != "" {
			t.ffprobePath = ffprobePath
		}
	}
}

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(t *Tool) { t.runner = r }
}

// WithCommandLog registers a callback invoked after every command.
func WithCommandLog(cb func(CommandLog)) Option {
	return func(t *Tool) { t.onLog = cb }
}

// NewTool constructs a Tool resolving binaries from PATH by default.
func NewTool(opts ...Option) *Tool {
	t := &Tool{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      ExecRunner{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FFmpegPath returns the configured ffmpeg executable.
func (t *Tool) FFmpegPath() string { return t.ffmpegPath }

// FFprobePath returns the configured ffprobe executable.
func (t *Tool) FFprobePath() string { return t.ffprobePath }

// Run executes ffmpeg with "-y -hide_banner -nostdin -loglevel error" prepended.
func (t *Tool) Run(ctx context.Context, args ...string) error {
	full := make([]string, 0, len(args)+6)
	full = append(full, "-y", "-hide_banner", "-nostdin", "-loglevel", "error")
	full = append(full, args...)

	res, err := t.runner.Run(ctx, t.ffmpegPath, full...)
	log := CommandLog{
		Command:  t.ffmpegPath,
		Args:     full,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if t.onLog != nil {
		t.onLog(log)
	}
	if err != nil {
		return &ToolError{Message: "ffmpeg failed", CommandLog: log, Err: err}
	}
	return nil
}

// ProbeDuration returns the container duration of path in seconds.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := t.runner.Run(ctx, t.ffprobePath, args...)
	log := CommandLog{
		Command:  t.ffprobePath,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if err != nil {
		return 0, &ToolError{Message: "ffprobe failed", CommandLog: log, Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, &ToolError{Message: "cannot parse duration", CommandLog: log, Err: err}
	}
	return duration, nil
}

// stderrTail returns the last n non-empty lines of stderr joined by " | ".
func stderrTail(stderr string, n int) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " | ")
}
