package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"video-matrix/internal/actions"
	"video-matrix/internal/catalog"
	"video-matrix/internal/config"
	"video-matrix/internal/diagnostics"
	"video-matrix/internal/domain"
	"video-matrix/internal/ffmpeg"
	"video-matrix/internal/jobs"
	"video-matrix/internal/pipeline"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var materialDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Images and videos",
		Pattern:     "*.png;*.jpg;*.jpeg;*.webp;*.gif;*.mp4;*.mov;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var presetDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Presets",
		Pattern:     "*.yaml;*.yml",
	},
}

// EventName is the runtime event carrying batch events to the frontend.
const EventName = "batch:event"

// App wires configuration, batches, the engine, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Diagnostics domain.DiagnosticReport
	PresetDir   string
	assets      fs.FS
	checker     *diagnostics.Checker
	newEngine   engineFactory

	mu            sync.Mutex
	activeBatchID string
	cancel        context.CancelFunc
	stream        *pipeline.EventStream
	events        *jobs.EventBus
	runtimeCtx    context.Context
}

// batchRunner isolates the execution engine behind an interface.
type batchRunner interface {
	RunBatch(ctx context.Context, req pipeline.BatchRequest) *pipeline.EventStream
}

// engineFactory builds an engine for the given settings. onCommand receives
// every ffmpeg/ffprobe invocation.
type engineFactory func(settings domain.Settings, onCommand func(ffmpeg.CommandLog)) batchRunner

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings, err = config.ApplyEnv(settings, nil)
	if err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: report,
		PresetDir:   config.DefaultPresetDir(),
		assets:      assets,
		checker:     checker,
		newEngine:   defaultEngine,
		events:      jobs.NewEventBus(1000),
	}, nil
}

// defaultEngine builds the production engine: ffmpeg tool from settings, every
// built-in transformation registered, worker limit applied.
func defaultEngine(settings domain.Settings, onCommand func(ffmpeg.CommandLog)) batchRunner {
	opts := []ffmpeg.Option{ffmpeg.WithBinaries(settings.FFmpegPath, settings.FFprobePath)}
	if onCommand != nil {
		opts = append(opts, ffmpeg.WithCommandLog(onCommand))
	}
	reg := actions.NewRegistry(ffmpeg.NewTool(opts...))
	return pipeline.NewEngine(reg, pipeline.WithWorkers(settings.Workers))
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Video Matrix",
		Width:       1240,
		Height:      820,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickInputDirectory opens a native directory picker for source videos.
func (a *App) PickInputDirectory() (string, error) {
	return a.pickDirectory("Select input directory")
}

// PickOutputDirectory opens a native directory picker for processed videos.
func (a *App) PickOutputDirectory() (string, error) {
	return a.pickDirectory("Select output directory")
}

// PickMaterialFile opens a native file dialog for one material slot.
func (a *App) PickMaterialFile(slot string) (string, error) {
	if !lo.Contains(domain.MaterialSlots, slot) {
		return "", fmt.Errorf("unknown material slot: %s", slot)
	}
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select " + slot + " material",
		Filters: materialDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickPresetFile opens a native file dialog for a YAML preset.
func (a *App) PickPresetFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:            "Load preset",
		DefaultDirectory: a.PresetDir,
		Filters:          presetDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

func (a *App) pickDirectory(title string) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: title,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = diagnostics.EffectiveOutputDir(a.Settings)
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// StartBatch runs the persisted settings as a new batch.
func (a *App) StartBatch() (domain.Batch, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Batch{}, err
	}
	return a.StartBatchWith(settings)
}

// loadSettings reads persisted settings with MATRIX_* overrides layered on top.
func (a *App) loadSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings, err = config.ApplyEnv(settings, nil)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("apply environment: %w", err)
	}
	return settings, nil
}

// StartBatchWith scans the input directory and runs settings asynchronously.
func (a *App) StartBatchWith(settings domain.Settings) (domain.Batch, error) {
	settings = normalizeSettings(settings)
	if settings.InputDir == "" {
		return domain.Batch{}, fmt.Errorf("input directory is not set")
	}
	topology, err := pipeline.ParseTopology(settings.Topology)
	if err != nil {
		return domain.Batch{}, err
	}
	cancelMode, err := pipeline.ParseCancelMode(settings.CancelMode)
	if err != nil {
		return domain.Batch{}, err
	}

	files, scanErr := pipeline.ScanInputFiles(settings.InputDir)
	total := 0
	if built, err := pipeline.BuildJobs(files, settings.Transformations, topology); err == nil {
		total = pipeline.TotalUnits(built)
	}

	batchID := uuid.NewString()
	if err := a.Jobs.Start(batchID, len(files), total); err != nil {
		return domain.Batch{}, err
	}

	factory := a.newEngine
	if factory == nil {
		factory = defaultEngine
	}
	engine := factory(settings, func(log ffmpeg.CommandLog) {
		a.publishCommand(batchID, log)
	})

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeBatchID = batchID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	a.publishStatus(batchID, domain.BatchStatusRunning, "Batch started")
	a.publishEvent(jobs.Event{
		BatchID: batchID,
		Type:    jobs.EventTypeLog,
		Level:   string(pipeline.LevelInfo),
		Message: "Input directory: " + settings.InputDir,
	})
	if scanErr != nil {
		a.publishEvent(jobs.Event{
			BatchID: batchID,
			Type:    jobs.EventTypeLog,
			Level:   string(pipeline.LevelError),
			Message: scanErr.Error(),
		})
	}

	stream := engine.RunBatch(ctx, pipeline.BatchRequest{
		Files:           files,
		OutputDir:       diagnostics.EffectiveOutputDir(settings),
		Transformations: settings.Transformations,
		Topology:        topology,
		Params:          catalog.NewParams(settings.Params, settings.Materials),
		Cancel:          cancelMode,
	})
	a.mu.Lock()
	a.stream = stream
	a.mu.Unlock()

	go a.consumeBatch(batchID, stream)
	return a.Jobs.Current(), nil
}

// StopBatch stops listening to the running batch and signals cancellation.
// Whether running ffmpeg processes are killed depends on the cancel mode.
func (a *App) StopBatch() error {
	a.mu.Lock()
	cancel := a.cancel
	stream := a.stream
	activeBatchID := a.activeBatchID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningBatch
	}

	cancel()
	if stream != nil {
		stream.Stop()
	}
	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningBatch) {
		return err
	}

	a.clearActiveBatch(activeBatchID)
	if activeBatchID != "" {
		a.publishStatus(activeBatchID, domain.BatchStatusCancelled, "Batch stopped")
	}
	return nil
}

// CurrentBatch returns current batch metadata and status.
func (a *App) CurrentBatch() domain.Batch {
	return a.Jobs.Current()
}

// BatchEvents returns all events with sequence greater than sinceSeq.
func (a *App) BatchEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// consumeBatch republishes stream events until the terminal one.
func (a *App) consumeBatch(batchID string, stream *pipeline.EventStream) {
	for {
		ev, ok := stream.Receive(context.Background())
		if !ok {
			return
		}

		switch ev.Kind {
		case pipeline.EventProgress:
			a.Jobs.SetProgress(ev.Fraction)
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Timestamp: ev.Time,
				Type:      jobs.EventTypeProgress,
				Progress:  ev.Fraction,
			})
		case pipeline.EventLog:
			a.publishEvent(jobs.Event{
				BatchID:    batchID,
				Timestamp:  ev.Time,
				Type:       jobs.EventTypeLog,
				Level:      string(ev.Level),
				Message:    ev.Message,
				File:       ev.File,
				Step:       ev.Step,
				OutputPath: ev.Output,
			})
		case pipeline.EventFinished:
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Timestamp: ev.Time,
				Type:      jobs.EventTypeFinished,
				Message:   ev.Message,
				Progress:  1,
			})
			a.finishBatch(batchID, domain.BatchStatusDone, "Batch completed")
			return
		case pipeline.EventError:
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Timestamp: ev.Time,
				Type:      jobs.EventTypeError,
				Status:    domain.BatchStatusFailed,
				Message:   ev.Message,
			})
			a.finishBatch(batchID, domain.BatchStatusFailed, "Batch failed")
			return
		}
	}
}

func (a *App) finishBatch(batchID string, status domain.BatchStatus, message string) {
	if a.Jobs.Current().ID == batchID {
		if err := a.Jobs.Transition(status); err == nil {
			a.publishStatus(batchID, status, message)
		}
	}
	a.clearActiveBatch(batchID)
}

// publishCommand records one external tool invocation. Commands finishing
// after their batch was stopped are dropped.
func (a *App) publishCommand(batchID string, log ffmpeg.CommandLog) {
	a.mu.Lock()
	active := a.activeBatchID == batchID
	a.mu.Unlock()
	if !active {
		return
	}

	message := "Command completed"
	if log.ExitCode != 0 {
		message = "Command failed"
	}
	a.publishEvent(jobs.Event{
		BatchID:  batchID,
		Type:     jobs.EventTypeCommand,
		Message:  message,
		Command:  log.Command,
		Args:     log.Args,
		ExitCode: log.ExitCode,
		Stderr:   log.Stderr,
	})
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(batchID string, status domain.BatchStatus, message string) {
	a.publishEvent(jobs.Event{
		BatchID: batchID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, EventName, published)
	}
}

// clearActiveBatch clears cancellation handles for completed batch IDs.
func (a *App) clearActiveBatch(batchID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeBatchID == batchID {
		a.activeBatchID = ""
		a.cancel = nil
		a.stream = nil
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for blank fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.InputDir = strings.TrimSpace(settings.InputDir)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.FFmpegPath = strings.TrimSpace(settings.FFmpegPath)
	settings.FFprobePath = strings.TrimSpace(settings.FFprobePath)
	settings.Topology = strings.ToLower(strings.TrimSpace(settings.Topology))
	settings.CancelMode = strings.ToLower(strings.TrimSpace(settings.CancelMode))
	settings.Transformations = lo.Compact(lo.Map(settings.Transformations, func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	if settings.Workers < 0 {
		settings.Workers = 0
	}
	materials := make(map[string]string, len(settings.Materials))
	for slot, path := range settings.Materials {
		if path = strings.TrimSpace(path); path != "" {
			materials[slot] = path
		}
	}
	settings.Materials = materials
	return config.WithDefaults(settings)
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
