// Package logging is the leveled console logger used by the command-line
// front ends.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ColorMode selects when ANSI colors are written.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always or never.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	}
	return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

// Options configures a Logger.
type Options struct {
	Color   ColorMode
	LogFile string
	Verbose bool
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

type palette struct {
	red, green, yellow, blue, cyan, magenta, reset string
}

var ansi = palette{
	red:     "\033[1;91m",
	green:   "\033[1;92m",
	yellow:  "\033[1;93m",
	blue:    "\033[1;94m",
	cyan:    "\033[1;96m",
	magenta: "\033[1;95m",
	reset:   "\033[0m",
}

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	mu      sync.Mutex
	colors  palette
	stdout  io.Writer
	stderr  io.Writer
	file    *os.File
	verbose bool
	now     func() time.Time
}

// New initializes colors from opts and optionally opens opts.LogFile in append
// mode. Call Close when done if LogFile was set.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		verbose: opts.Verbose,
		now:     time.Now,
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
	}
	if l.stderr == nil {
		l.stderr = os.Stderr
	}

	enable := false
	switch opts.Color {
	case ColorAlways:
		enable = true
	case ColorNever:
		enable = false
	default:
		f, ok := l.stdout.(*os.File)
		enable = ok && isTerminal(f) && os.Getenv("NO_COLOR") == "" && strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
	if enable {
		l.colors = ansi
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
	}
	return l, nil
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + level + "] " + text + "\n"
	out := l.stdout
	if level == "ERROR" {
		out = l.stderr
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+l.colors.reset+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", l.colors.blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", l.colors.green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", l.colors.yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red) to stderr.
func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", l.colors.red, fmt.Sprintf(format, args...))
}

// Progress logs at PROGRESS level (magenta).
func (l *Logger) Progress(format string, args ...any) {
	l.line("PROGRESS", l.colors.magenta, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only in verbose mode.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", l.colors.cyan, fmt.Sprintf(format, args...))
}
