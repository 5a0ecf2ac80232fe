// Command matrix applies a batch of ffmpeg transformations to every video in
// a directory and prints progress to the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"video-matrix/internal/actions"
	"video-matrix/internal/catalog"
	"video-matrix/internal/config"
	"video-matrix/internal/diagnostics"
	"video-matrix/internal/domain"
	"video-matrix/internal/ffmpeg"
	"video-matrix/internal/logging"
	"video-matrix/internal/pipeline"
)

// buildRegistry is swapped in tests.
var buildRegistry = func(tool *ffmpeg.Tool) pipeline.Resolver {
	return actions.NewRegistry(tool)
}

const pollInterval = 50 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// no logger yet: bootstrap errors go straight to stderr
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(stderr, "matrix: %v\n", err)
		return 1
	}
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "matrix: %v\n", err)
		return 2
	}

	log, err := logging.New(logging.Options{
		Color:   opts.color,
		LogFile: opts.logFile,
		Verbose: opts.verbose,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "matrix: %v\n", err)
		return 1
	}
	defer log.Close()

	if opts.list {
		listTransformations(stdout)
		return 0
	}

	settings, err := loadSettings(opts)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	if opts.check {
		return runCheck(settings, log)
	}

	if settings.InputDir == "" {
		log.Error("Input directory is required (-input)")
		return 2
	}
	topology, err := pipeline.ParseTopology(settings.Topology)
	if err != nil {
		log.Error("%v", err)
		return 2
	}
	cancelMode, err := pipeline.ParseCancelMode(settings.CancelMode)
	if err != nil {
		log.Error("%v", err)
		return 2
	}

	log.Info("Input directory: %s", settings.InputDir)
	// an unreadable directory scans as empty and the engine reports it
	files, err := pipeline.ScanInputFiles(settings.InputDir)
	if err != nil {
		log.Error("Cannot read input directory: %v", err)
	}

	tool := ffmpeg.NewTool(
		ffmpeg.WithBinaries(settings.FFmpegPath, settings.FFprobePath),
		ffmpeg.WithCommandLog(func(cmd ffmpeg.CommandLog) {
			log.Debug("%s %v (exit %d)", cmd.Command, cmd.Args, cmd.ExitCode)
		}),
	)
	engine := pipeline.NewEngine(buildRegistry(tool), pipeline.WithWorkers(settings.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := engine.RunBatch(ctx, pipeline.BatchRequest{
		Files:           files,
		OutputDir:       diagnostics.EffectiveOutputDir(settings),
		Transformations: settings.Transformations,
		Topology:        topology,
		Params:          catalog.NewParams(settings.Params, settings.Materials),
		Cancel:          cancelMode,
	})

	ok := consume(ctx, stream, log, stop)
	summary := stream.Summary()
	if !ok || summary.Failed > 0 {
		return 1
	}
	return 0
}

// loadSettings layers stored settings, environment, preset and flags.
func loadSettings(opts options) (domain.Settings, error) {
	settings, err := config.NewJSONStore(opts.settingsPath).Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings, err = config.ApplyEnv(settings, nil)
	if err != nil {
		return domain.Settings{}, err
	}
	if opts.presetPath != "" {
		preset, err := config.LoadPreset(opts.presetPath)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("load preset: %w", err)
		}
		settings = preset.Apply(settings)
	}
	settings = opts.apply(settings)

	if settings.InputDir != "" {
		if abs, err := filepath.Abs(settings.InputDir); err == nil {
			settings.InputDir = abs
		}
	}
	return config.WithDefaults(settings), nil
}

// consume polls the stream and renders events until the terminal one. It
// reports false when the batch ended with an error or ctx was cancelled. On
// cancellation it stops listening and calls restore so a second signal
// terminates the process.
func consume(ctx context.Context, stream *pipeline.EventStream, log *logging.Logger, restore func()) bool {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	interrupted := func() bool {
		stream.Stop()
		if restore != nil {
			restore()
		}
		log.Warn("Interrupted: stopped listening, running ffmpeg processes will finish on their own")
		return false
	}

	for {
		if ctx.Err() != nil {
			return interrupted()
		}
		ev, ok := stream.TryReceive()
		if !ok {
			select {
			case <-ticker.C:
			case <-stream.Done():
			case <-ctx.Done():
				return interrupted()
			}
			continue
		}

		switch ev.Kind {
		case pipeline.EventLog:
			switch {
			case ev.Level == pipeline.LevelError:
				log.Error("%s", ev.Message)
			case ev.Level == pipeline.LevelWarn:
				log.Warn("%s", ev.Message)
			case ev.Output != "":
				log.Success("%s", ev.Message)
			default:
				log.Info("%s", ev.Message)
			}
		case pipeline.EventProgress:
			log.Progress("%3.0f%%", ev.Fraction*100)
		case pipeline.EventFinished:
			log.Success("%s", ev.Message)
			if dropped := stream.Dropped(); dropped > 0 {
				log.Warn("%d events were dropped", dropped)
			}
			return true
		case pipeline.EventError:
			log.Error("%s", ev.Message)
			return false
		}
	}
}

func runCheck(settings domain.Settings, log *logging.Logger) int {
	report := diagnostics.NewChecker().Run(settings)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusPass {
			log.Success("%s: %s", item.Name, item.Message)
			continue
		}
		log.Error("%s: %s", item.Name, item.Message)
		if item.Hint != "" {
			log.Info("  %s", item.Hint)
		}
	}
	if report.HasFailures {
		return 1
	}
	return 0
}

func listTransformations(w io.Writer) {
	var group domain.TransformationGroup
	for _, opt := range actions.Options() {
		if opt.Group != group {
			group = opt.Group
			fmt.Fprintf(w, "\n[%s]\n", group)
		}
		fmt.Fprintf(w, "  %-14s %-10s %s\n", opt.ID, opt.Tag, opt.Name)
	}
}
