package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"video-matrix/internal/ffmpeg"
)

// ProcessedTag is the suffix of a chained job's final output.
const ProcessedTag = "processed"

func conventionalOutput(input, outputDir, tag string) (string, error) {
	return ffmpeg.OutputPath(input, outputDir, tag)
}

// runIndependent applies every transformation to the original file. A failed
// step is logged and the next one still runs.
func (b *batch) runIndependent(job Job) {
	name := filepath.Base(job.Input)
	for _, id := range job.Transformations {
		if b.cancelled() {
			b.skipped.Store(true)
			return
		}

		b.stepLog(LevelInfo, job, id, fmt.Sprintf("Processing: %s [%s]", name, id), "")
		out, err := b.applyStep(id, job.Input, b.req.OutputDir)
		if err != nil {
			b.stepLog(LevelError, job, id, fmt.Sprintf("%s failed (%s): %v", id, name, errors.Unwrap(err)), "")
			b.record(false, "")
		} else {
			b.stepLog(LevelInfo, job, id, fmt.Sprintf("%s completed (%s)", id, name), out)
			b.record(true, out)
		}
		b.advance(1)
	}
}

// runChained feeds each step the previous step's output, renames the last
// output to {stem}_processed.{ext} and removes the intermediates. Steps write
// into a per-job work directory so stacked tags of one job never meet
// another job's names.
func (b *batch) runChained(job Job) {
	name := filepath.Base(job.Input)
	current := job.Input
	final := ""
	work := workDir(b.req.OutputDir, job.Input)
	var intermediates []string

	defer func() {
		b.cleanup(job, intermediates, final)
		b.removeWorkDir(job, work, final)
		b.record(final != "", final)
		b.advance(job.Units())
	}()

	if err := b.engine.mkdirAll(work, 0o755); err != nil {
		b.stepLog(LevelError, job, "", fmt.Sprintf("Cannot prepare %s: %v", name, err), "")
		return
	}

	last := len(job.Transformations) - 1
	for i, id := range job.Transformations {
		if b.cancelled() {
			b.skipped.Store(true)
			b.stepLog(LevelWarn, job, id, fmt.Sprintf("Chain stopped before %s (%s): batch cancelled", id, name), "")
			intermediates = appendIntermediate(intermediates, job.Input, current)
			return
		}

		b.stepLog(LevelInfo, job, id, fmt.Sprintf("Processing: %s [%s]", name, id), "")
		out, err := b.applyStep(id, current, work)
		if err != nil {
			b.stepLog(LevelError, job, id, fmt.Sprintf("%s failed (%s): %v", id, name, errors.Unwrap(err)), "")
			intermediates = appendIntermediate(intermediates, job.Input, current)
			// a failed ffmpeg run can leave a partial file behind
			if partial, ok := b.partialOutput(id, current, work); ok {
				intermediates = appendIntermediate(intermediates, job.Input, partial)
			}
			return
		}
		b.stepLog(LevelInfo, job, id, fmt.Sprintf("%s completed (%s)", id, name), out)

		if i < last {
			intermediates = appendIntermediate(intermediates, job.Input, current)
			current = out
			continue
		}

		final = out
		processed, err := conventionalOutput(job.Input, b.req.OutputDir, ProcessedTag)
		if err == nil {
			err = b.engine.rename(out, processed)
		}
		if err != nil {
			b.stepLog(LevelWarn, job, id, fmt.Sprintf("Could not rename %s: %v, keeping it", filepath.Base(out), err), out)
		} else {
			final = processed
		}
		b.stepLog(LevelInfo, job, "", fmt.Sprintf("Saved: %s", filepath.Base(final)), final)
	}
}

// workDir is the hidden per-job directory holding chained intermediates.
// Input base names are unique within a batch, so the directory is too.
func workDir(outputDir, input string) string {
	return filepath.Join(outputDir, "."+filepath.Base(input)+".work")
}

// removeWorkDir deletes the emptied work directory unless the kept output
// still lives inside it.
func (b *batch) removeWorkDir(job Job, work, final string) {
	if final != "" && filepath.Dir(final) == work {
		return
	}
	if err := b.engine.remove(work); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.stepLog(LevelWarn, job, "", fmt.Sprintf("Could not remove work directory %s: %v", filepath.Base(work), err), "")
	}
}

// partialOutput returns the conventional output of a failed step if a file
// exists there.
func (b *batch) partialOutput(id, input, outputDir string) (string, bool) {
	t, err := b.engine.registry.Resolve(id)
	if err != nil {
		return "", false
	}
	path, err := conventionalOutput(input, outputDir, t.Tag())
	if err != nil {
		return "", false
	}
	if _, err := b.engine.stat(path); err != nil {
		return "", false
	}
	return path, true
}

// cleanup removes intermediates other than the original and the final output.
// Failures are logged only.
func (b *batch) cleanup(job Job, intermediates []string, final string) {
	for _, path := range intermediates {
		if path == job.Input || path == final {
			continue
		}
		if err := b.engine.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.stepLog(LevelWarn, job, "", fmt.Sprintf("Could not remove intermediate %s: %v", filepath.Base(path), err), "")
		}
	}
}

func appendIntermediate(list []string, original, path string) []string {
	if path == "" || path == original {
		return list
	}
	for _, p := range list {
		if p == path {
			return list
		}
	}
	return append(list, path)
}
