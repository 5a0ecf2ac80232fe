package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l, err := New(Options{Color: ColorNever, Stdout: &out, Stderr: &errOut})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Info("scanning %s", "/in")
	l.Success("done")
	l.Error("rotate failed")
	l.Debug("hidden")

	if !strings.Contains(out.String(), "[INFO] scanning /in") || !strings.Contains(out.String(), "[SUCCESS] done") {
		t.Errorf("stdout: %q", out.String())
	}
	if strings.Contains(out.String(), "hidden") {
		t.Error("debug line written without verbose")
	}
	if !strings.Contains(errOut.String(), "[ERROR] rotate failed") {
		t.Errorf("stderr: %q", errOut.String())
	}
}

func TestNew_ColorAlways(t *testing.T) {
	var out bytes.Buffer
	l, err := New(Options{Color: ColorAlways, Stdout: &out, Verbose: true})
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("visible")
	if !strings.Contains(out.String(), "\033[") || !strings.Contains(out.String(), "visible") {
		t.Errorf("expected colored debug line, got %q", out.String())
	}
}

func TestNew_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "matrix.log")
	var out bytes.Buffer
	l, err := New(Options{Color: ColorAlways, LogFile: path, Stdout: &out})
	if err != nil {
		t.Fatal(err)
	}
	l.Warn("to file")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("[WARN] to file")) {
		t.Errorf("log file content: %s", string(b))
	}
	if bytes.Contains(b, []byte("\033[")) {
		t.Error("log file must not contain color codes")
	}
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "ALWAYS": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		if err != nil || got != want {
			t.Errorf("ParseColorMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseColorMode("rainbow"); err == nil {
		t.Error("expected error")
	}
}
