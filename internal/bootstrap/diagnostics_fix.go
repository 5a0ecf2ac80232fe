package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"video-matrix/internal/config"
	"video-matrix/internal/diagnostics"
	"video-matrix/internal/domain"
)

const installCommandTimeout = 45 * time.Minute

// installFFmpeg is swapped in tests.
var installFFmpeg = installFFmpegForCurrentOS

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch {
	case id == "tool_ffmpeg" || id == "tool_ffprobe":
		settings, settingsChanged, fixErr = fixTools(settings)
	case id == "output_dir":
		settings, settingsChanged, fixErr = installOrFixOutputDir(settings)
	case strings.HasPrefix(id, "material_"):
		settings, settingsChanged = clearMaterial(settings, strings.TrimPrefix(id, "material_"))
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	effective, err := config.ApplyEnv(settings, nil)
	if err != nil {
		effective = settings
	}
	report := a.refreshDiagnosticsFromSettings(effective)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// toolBinding ties a required binary to its settings field.
type toolBinding struct {
	name string
	get  func(domain.Settings) string
	set  func(*domain.Settings, string)
}

var toolBindings = []toolBinding{
	{
		name: "ffmpeg",
		get:  func(s domain.Settings) string { return s.FFmpegPath },
		set:  func(s *domain.Settings, path string) { s.FFmpegPath = path },
	},
	{
		name: "ffprobe",
		get:  func(s domain.Settings) string { return s.FFprobePath },
		set:  func(s *domain.Settings, path string) { s.FFprobePath = path },
	},
}

// fixTools installs ffmpeg when a configured binary does not resolve, then
// points stored settings at the installed binaries.
func fixTools(settings domain.Settings) (domain.Settings, bool, error) {
	effective, err := config.ApplyEnv(settings, nil)
	if err != nil {
		return settings, false, fmt.Errorf("apply environment: %w", err)
	}
	if len(unresolvedTools(effective)) == 0 {
		return settings, false, nil
	}
	if err := installFFmpeg(); err != nil {
		return settings, false, err
	}

	changed := false
	var missing []string
	for _, tool := range toolBindings {
		configured := tool.get(effective)
		if _, err := lookPath(configured); err == nil {
			continue
		}
		if configured != tool.get(settings) {
			missing = append(missing, fmt.Sprintf("%s (from environment)", configured))
			continue
		}
		resolved, err := lookPath(tool.name)
		if err != nil {
			missing = append(missing, tool.name)
			continue
		}
		tool.set(&settings, resolved)
		changed = true
	}
	if len(missing) > 0 {
		return settings, changed, fmt.Errorf("still missing after install: %s", strings.Join(missing, ", "))
	}
	return settings, changed, nil
}

func unresolvedTools(settings domain.Settings) []string {
	var missing []string
	for _, tool := range toolBindings {
		if _, err := lookPath(tool.get(settings)); err != nil {
			missing = append(missing, tool.name)
		}
	}
	return missing
}

// packageManager is one way to install ffmpeg on the current OS.
type packageManager struct {
	name     string
	elevate  bool
	commands [][]string
}

var ffmpegPackages = map[string][]packageManager{
	"windows": {
		{name: "winget", commands: [][]string{{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"}}},
		{name: "choco", commands: [][]string{{"choco", "install", "ffmpeg", "-y"}}},
		{name: "scoop", commands: [][]string{{"scoop", "install", "ffmpeg"}}},
	},
	"darwin": {
		{name: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
	},
	"linux": {
		{name: "apt-get", elevate: true, commands: [][]string{{"apt-get", "update"}, {"apt-get", "install", "-y", "ffmpeg"}}},
		{name: "dnf", elevate: true, commands: [][]string{{"dnf", "install", "-y", "ffmpeg"}}},
		{name: "pacman", elevate: true, commands: [][]string{{"pacman", "-Sy", "--noconfirm", "ffmpeg"}}},
		{name: "zypper", elevate: true, commands: [][]string{{"zypper", "install", "-y", "ffmpeg"}}},
		{name: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
	},
}

// Swapped in tests.
var (
	lookPath       = exec.LookPath
	runInstallStep = runStep
)

func installFFmpegForCurrentOS() error {
	managers, ok := ffmpegPackages[goruntime.GOOS]
	if !ok {
		managers = ffmpegPackages["linux"]
	}
	return installWith(managers)
}

// installWith tries each available package manager in order until one succeeds.
func installWith(managers []packageManager) error {
	var failures []string
	for _, pm := range managers {
		if _, err := lookPath(pm.name); err != nil {
			continue
		}
		err := pm.install()
		if err == nil {
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", pm.name, err))
	}
	if len(failures) == 0 {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return fmt.Errorf("install ffmpeg: %s", strings.Join(failures, "; "))
}

func (pm packageManager) install() error {
	for _, argv := range pm.commands {
		if err := runWithElevation(argv, pm.elevate); err != nil {
			return err
		}
	}
	return nil
}

// runWithElevation retries argv through pkexec and non-interactive sudo on Linux.
func runWithElevation(argv []string, elevate bool) error {
	attempts := [][]string{argv}
	if elevate && goruntime.GOOS == "linux" {
		for _, prefix := range [][]string{{"pkexec"}, {"sudo", "-n"}} {
			if _, err := lookPath(prefix[0]); err == nil {
				attempts = append(attempts, append(append([]string(nil), prefix...), argv...))
			}
		}
	}

	var errs []error
	for _, attempt := range attempts {
		err := runInstallStep(attempt)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func runStep(argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err == nil {
		return nil
	}
	line := strings.Join(argv, " ")
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", line, installCommandTimeout)
	}
	tail := strings.TrimSpace(string(output))
	if len(tail) > 500 {
		tail = "..." + tail[len(tail)-500:]
	}
	if tail == "" {
		return fmt.Errorf("%s: %w", line, err)
	}
	return fmt.Errorf("%s: %w (%s)", line, err, tail)
}

// installOrFixOutputDir creates the effective output directory, falling back
// to ~/Videos/video-matrix when neither input nor output is configured.
func installOrFixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := diagnostics.EffectiveOutputDir(settings)
	changed := false
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return settings, false, fmt.Errorf("resolve user home: %w", err)
		}
		outputDir = filepath.Join(home, "Videos", "video-matrix")
		settings.OutputDir = outputDir
		changed = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return settings, changed, nil
}

// clearMaterial empties a material slot whose file is unusable.
func clearMaterial(settings domain.Settings, slot string) (domain.Settings, bool) {
	if _, ok := settings.Materials[slot]; !ok {
		return settings, false
	}
	materials := make(map[string]string, len(settings.Materials))
	for k, v := range settings.Materials {
		if k != slot {
			materials[k] = v
		}
	}
	settings.Materials = materials
	return settings, true
}
