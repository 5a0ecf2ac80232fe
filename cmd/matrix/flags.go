package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"video-matrix/internal/config"
	"video-matrix/internal/domain"
	"video-matrix/internal/logging"
)

// options holds parsed command-line flags. Zero values mean "not given".
type options struct {
	settingsPath string
	presetPath   string
	inputDir     string
	outputDir    string
	transforms   string
	topology     string
	cancelMode   string
	workers      int
	ffmpegPath   string
	ffprobePath  string
	params       map[string]any
	materials    map[string]string

	color   logging.ColorMode
	logFile string
	verbose bool
	list    bool
	check   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{
		params:    map[string]any{},
		materials: map[string]string{},
	}
	color := string(logging.ColorAuto)

	fs := flag.NewFlagSet("matrix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: matrix -input DIR [-t id,id,...] [options]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.settingsPath, "settings", config.DefaultSettingsPath(), "settings JSON file")
	fs.StringVar(&opts.presetPath, "preset", "", "YAML preset to apply")
	fs.StringVar(&opts.inputDir, "input", "", "directory of source videos")
	fs.StringVar(&opts.outputDir, "output", "", "output directory (default {input}/output)")
	fs.StringVar(&opts.transforms, "t", "", "comma-separated transformation ids")
	fs.StringVar(&opts.topology, "topology", "", "independent or chained")
	fs.StringVar(&opts.cancelMode, "cancel", "", "on interrupt: never, pending or all")
	fs.IntVar(&opts.workers, "workers", 0, "parallel jobs (default: CPU count)")
	fs.StringVar(&opts.ffmpegPath, "ffmpeg", "", "ffmpeg binary")
	fs.StringVar(&opts.ffprobePath, "ffprobe", "", "ffprobe binary")
	fs.Func("param", "transformation parameter key=value (repeatable)", func(v string) error {
		key, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("want key=value, got %q", v)
		}
		opts.params[strings.TrimSpace(key)] = parseValue(strings.TrimSpace(value))
		return nil
	})
	fs.Func("material", "material slot=path (repeatable)", func(v string) error {
		slot, path, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(slot) == "" {
			return fmt.Errorf("want slot=path, got %q", v)
		}
		opts.materials[strings.TrimSpace(slot)] = strings.TrimSpace(path)
		return nil
	})
	fs.StringVar(&color, "color", color, "auto, always or never")
	fs.StringVar(&opts.logFile, "log-file", "", "append log lines to this file")
	fs.BoolVar(&opts.verbose, "v", false, "log every ffmpeg command")
	fs.BoolVar(&opts.list, "list", false, "list transformations and exit")
	fs.BoolVar(&opts.check, "check", false, "run diagnostics and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.workers < 0 {
		return opts, fmt.Errorf("-workers must not be negative")
	}

	mode, err := logging.ParseColorMode(color)
	if err != nil {
		return opts, err
	}
	opts.color = mode
	return opts, nil
}

// parseValue keeps numbers and booleans typed so transformations can read them.
func parseValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// apply overlays explicitly given flags on settings.
func (o options) apply(settings domain.Settings) domain.Settings {
	if o.inputDir != "" {
		settings.InputDir = o.inputDir
	}
	if o.outputDir != "" {
		settings.OutputDir = o.outputDir
	}
	if o.transforms != "" {
		settings.Transformations = strings.Split(o.transforms, ",")
	}
	if o.topology != "" {
		settings.Topology = o.topology
	}
	if o.cancelMode != "" {
		settings.CancelMode = o.cancelMode
	}
	if o.workers > 0 {
		settings.Workers = o.workers
	}
	if o.ffmpegPath != "" {
		settings.FFmpegPath = o.ffmpegPath
	}
	if o.ffprobePath != "" {
		settings.FFprobePath = o.ffprobePath
	}
	if len(o.params) > 0 {
		params := make(map[string]any, len(settings.Params)+len(o.params))
		for k, v := range settings.Params {
			params[k] = v
		}
		for k, v := range o.params {
			params[k] = v
		}
		settings.Params = params
	}
	if len(o.materials) > 0 {
		materials := make(map[string]string, len(settings.Materials)+len(o.materials))
		for k, v := range settings.Materials {
			materials[k] = v
		}
		for k, v := range o.materials {
			materials[k] = v
		}
		settings.Materials = materials
	}
	return settings
}
