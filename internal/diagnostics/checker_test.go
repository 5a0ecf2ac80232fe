package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"video-matrix/internal/domain"
)

func realChecker(lookPath func(string) (string, error)) *Checker {
	return NewCheckerForTests(
		lookPath,
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "a.mp4"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	logo := filepath.Join(root, "logo.png")
	if err := os.WriteFile(logo, []byte("png"), 0o644); err != nil {
		t.Fatalf("write logo: %v", err)
	}

	checker := realChecker(func(name string) (string, error) { return "/usr/local/bin/" + name, nil })
	report := checker.Run(domain.Settings{
		InputDir:        inputDir,
		Transformations: []string{"rotate"},
		Materials:       map[string]string{domain.MaterialWatermark: logo},
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, "material_watermark", domain.DiagnosticStatusPass)
	if _, err := os.Stat(filepath.Join(inputDir, "output")); err != nil {
		t.Fatalf("default output dir should be created: %v", err)
	}
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	checker := realChecker(func(string) (string, error) { return "", errors.New("not found") })

	report := checker.Run(domain.Settings{
		InputDir:  missing,
		Materials: map[string]string{domain.MaterialMask: filepath.Join(missing, "mask.png")},
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_ffprobe", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "input_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "transformations", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "material_mask", domain.DiagnosticStatusFail)
}

// TestCheckerRunInputWithoutVideosFails validates media detection.
func TestCheckerRunInputWithoutVideosFails(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("no video"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	checker := realChecker(func(name string) (string, error) { return "/usr/local/bin/" + name, nil })
	report := checker.Run(domain.Settings{
		InputDir:  root,
		OutputDir: filepath.Join(root, "output"),
	})

	assertStatusByID(t, report, "input_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusPass)
}

// TestCheckerUsesConfiguredToolPath validates custom binary lookup.
func TestCheckerUsesConfiguredToolPath(t *testing.T) {
	var looked []string
	checker := realChecker(func(name string) (string, error) {
		looked = append(looked, name)
		return name, nil
	})
	checker.Run(domain.Settings{FFmpegPath: "/opt/ffmpeg/bin/ffmpeg"})

	if len(looked) < 2 || looked[0] != "/opt/ffmpeg/bin/ffmpeg" || looked[1] != "ffprobe" {
		t.Fatalf("looked up = %v", looked)
	}
}

// TestEffectiveOutputDir checks the {input}/output fallback.
func TestEffectiveOutputDir(t *testing.T) {
	if got := EffectiveOutputDir(domain.Settings{InputDir: "/in"}); got != filepath.Join("/in", "output") {
		t.Fatalf("got %q", got)
	}
	if got := EffectiveOutputDir(domain.Settings{InputDir: "/in", OutputDir: "/out"}); got != "/out" {
		t.Fatalf("got %q", got)
	}
	if got := EffectiveOutputDir(domain.Settings{}); got != "" {
		t.Fatalf("got %q", got)
	}
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
