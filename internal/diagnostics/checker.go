package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"video-matrix/internal/domain"
	"video-matrix/internal/pipeline"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", settings.FFmpegPath),
		c.checkTool("ffprobe", settings.FFprobePath),
		c.checkInputDir(settings.InputDir),
		c.checkOutputDir(EffectiveOutputDir(settings)),
		checkSelection(settings.Transformations),
	}
	items = append(items, c.checkMaterials(settings.Materials)...)

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// EffectiveOutputDir returns the configured output dir or {input}/output.
func EffectiveOutputDir(settings domain.Settings) string {
	if dir := strings.TrimSpace(settings.OutputDir); dir != "" {
		return dir
	}
	if in := strings.TrimSpace(settings.InputDir); in != "" {
		return pipeline.DefaultOutputDir(in)
	}
	return ""
}

// checkTool verifies a required CLI executable resolves.
func (c *Checker) checkTool(name, configured string) domain.DiagnosticItem {
	bin := strings.TrimSpace(configured)
	if bin == "" {
		bin = name
	}
	path, err := c.lookPath(bin)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found: %s", bin),
			Hint:    "Install it and ensure the binary is on PATH, or set its path in settings.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkInputDir validates the input directory holds at least one media file.
func (c *Checker) checkInputDir(inputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "input_dir",
		Name: "Input directory",
	}

	if strings.TrimSpace(inputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Input directory is empty."
		item.Hint = "Choose a folder containing the videos to process."
		return item
	}

	entries, err := c.readDir(inputDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if IsNotExist(err) {
			item.Message = fmt.Sprintf("Input directory does not exist: %s", inputDir)
		} else {
			item.Message = fmt.Sprintf("Cannot read input directory: %s", inputDir)
		}
		item.Hint = "Check the path and its permissions."
		return item
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pipeline.MediaExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			count++
		}
	}
	if count == 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No video files found in: %s", inputDir)
		item.Hint = "Supported extensions: mp4, mov, mkv, avi, wmv, flv, webm, m4v."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%d video files in %s", count, inputDir)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory, or an input directory to use its output subfolder."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for processed videos."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

func checkSelection(ids []string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "transformations",
		Name: "Transformations",
	}
	if len(ids) == 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "No transformations selected."
		item.Hint = "Select at least one transformation or load a preset."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%d selected: %s", len(ids), strings.Join(ids, ", "))
	return item
}

// checkMaterials verifies every configured material path is a readable file.
func (c *Checker) checkMaterials(materials map[string]string) []domain.DiagnosticItem {
	var items []domain.DiagnosticItem
	for _, slot := range domain.MaterialSlots {
		path := strings.TrimSpace(materials[slot])
		if path == "" {
			continue
		}
		item := domain.DiagnosticItem{
			ID:   "material_" + slot,
			Name: "Material: " + slot,
		}
		info, err := c.stat(path)
		switch {
		case err != nil:
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Cannot access material file: %s", path)
			item.Hint = "Pick the file again or clear this material slot."
		case info.IsDir():
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Material path is a directory: %s", path)
			item.Hint = "Material slots take a single image or video file."
		default:
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Material file found: %s", path)
		}
		items = append(items, item)
	}
	return items
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		readDir:    readDir,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
