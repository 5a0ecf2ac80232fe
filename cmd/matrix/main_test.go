package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-matrix/internal/catalog"
	"video-matrix/internal/ffmpeg"
	"video-matrix/internal/logging"
	"video-matrix/internal/pipeline"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"-input", "/in",
		"-t", "rotate,mirror",
		"-topology", "chained",
		"-workers", "3",
		"-param", "rotate_angle=2.5",
		"-param", "mirror_direction=vertical",
		"-material", "watermark=/logo.png",
		"-color", "never",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/in", opts.inputDir)
	assert.Equal(t, 3, opts.workers)
	assert.Equal(t, logging.ColorNever, opts.color)
	assert.Equal(t, 2.5, opts.params["rotate_angle"])
	assert.Equal(t, "vertical", opts.params["mirror_direction"])
	assert.Equal(t, "/logo.png", opts.materials["watermark"])
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"-param", "novalue"},
		{"-material", "=/x.png"},
		{"-workers", "-1"},
		{"-color", "rainbow"},
		{"stray"},
	} {
		_, err := parseFlags(args, io.Discard)
		assert.Error(t, err, "args %v", args)
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 60.0, parseValue("60"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "15M", parseValue("15M"))
}

func TestLoadSettingsFlagsOverridePreset(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "tilt.yaml")
	require.NoError(t, os.WriteFile(presetPath, []byte("transformations: [rotate, mirror]\ntopology: chained\nparams:\n  rotate_angle: 1\n"), 0o644))

	opts, err := parseFlags([]string{
		"-settings", filepath.Join(dir, "settings.json"),
		"-preset", presetPath,
		"-input", dir,
		"-param", "rotate_angle=4",
	}, io.Discard)
	require.NoError(t, err)

	settings, err := loadSettings(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"rotate", "mirror"}, settings.Transformations)
	assert.Equal(t, "chained", settings.Topology)
	assert.Equal(t, 4.0, settings.Params["rotate_angle"])
	assert.Equal(t, dir, settings.InputDir)
}

func withRegistry(t *testing.T, transformations ...catalog.Transformation) {
	t.Helper()
	original := buildRegistry
	buildRegistry = func(*ffmpeg.Tool) pipeline.Resolver {
		reg := catalog.NewRegistry()
		for _, tr := range transformations {
			reg.Register(tr)
		}
		return reg
	}
	t.Cleanup(func() { buildRegistry = original })
}

func touch(id, tag string) catalog.Transformation {
	return catalog.Func{Name: id, Suffix: tag, Run: func(ctx context.Context, req catalog.Request) (string, error) {
		out, err := ffmpeg.OutputPath(req.InputPath, req.OutputDir, tag)
		if err != nil {
			return "", err
		}
		return out, os.WriteFile(out, []byte("x"), 0o644)
	}}
}

func TestRunProcessesDirectory(t *testing.T) {
	withRegistry(t, touch("rotate", "rot"))
	input := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(input, name), []byte("v"), 0o644))
	}
	output := filepath.Join(t.TempDir(), "out")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-settings", filepath.Join(t.TempDir(), "settings.json"),
		"-input", input,
		"-output", output,
		"-t", "rotate",
		"-color", "never",
	}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Batch finished: 2 succeeded, 0 failed")
	assert.FileExists(t, filepath.Join(output, "a_rot.mp4"))
	assert.FileExists(t, filepath.Join(output, "b_rot.mkv"))
}

func TestRunFailsWithoutInputFiles(t *testing.T) {
	withRegistry(t, touch("rotate", "rot"))

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-settings", filepath.Join(t.TempDir(), "settings.json"),
		"-input", t.TempDir(),
		"-t", "rotate",
		"-color", "never",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no input files")
}

func TestRunReportsFailedUnits(t *testing.T) {
	withRegistry(t, touch("rotate", "rot"))
	input := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(input, "a.mp4"), []byte("v"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-settings", filepath.Join(t.TempDir(), "settings.json"),
		"-input", input,
		"-output", filepath.Join(t.TempDir(), "out"),
		"-t", "rotate,unknown",
		"-color", "never",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Batch finished: 1 succeeded, 1 failed")
}

func TestRunListsTransformations(t *testing.T) {
	var stdout bytes.Buffer
	code := run([]string{"-list", "-color", "never"}, &stdout, io.Discard)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "[basic]")
	assert.Contains(t, stdout.String(), "mirror")
}

func TestConsumeStopsListeningOnInterrupt(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 1)

	reg := catalog.NewRegistry()
	reg.Register(catalog.Func{Name: "hold", Suffix: "hold", Run: func(ctx context.Context, req catalog.Request) (string, error) {
		started <- struct{}{}
		<-release
		return "", errors.New("released")
	}})

	input := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(input, []byte("v"), 0o644))
	stream := pipeline.NewEngine(reg).RunBatch(context.Background(), pipeline.BatchRequest{
		Files:           []string{input},
		OutputDir:       t.TempDir(),
		Transformations: []string{"hold"},
		Topology:        pipeline.TopologyIndependent,
	})
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("transformation was never started")
	}

	var out bytes.Buffer
	log, err := logging.New(logging.Options{Color: logging.ColorNever, Stdout: &out, Stderr: &out})
	require.NoError(t, err)
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	restored := false
	result := make(chan bool, 1)
	go func() {
		result <- consume(ctx, stream, log, func() { restored = true })
	}()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("consume kept waiting after interrupt")
	}
	assert.True(t, restored)
	assert.Contains(t, out.String(), "Interrupted")
}
