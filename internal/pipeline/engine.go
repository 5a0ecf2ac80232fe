// Package pipeline turns input files and transformation ids into jobs, runs
// them with bounded parallelism and reports progress through an EventStream.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"video-matrix/internal/catalog"
)

// Resolver looks transformations up by id.
type Resolver interface {
	Resolve(id string) (catalog.Transformation, error)
}

// CancelMode controls how much of a batch a cancelled context stops.
type CancelMode int

const (
	// CancelNever ignores the context: every job runs to completion.
	CancelNever CancelMode = iota
	// CancelPending stops dispatching jobs and steps but lets running
	// ffmpeg processes finish.
	CancelPending
	// CancelAll additionally passes the context to running processes.
	CancelAll
)

// ParseCancelMode maps "never", "pending" and "all" to a CancelMode.
func ParseCancelMode(s string) (CancelMode, error) {
	switch s {
	case "", "never":
		return CancelNever, nil
	case "pending":
		return CancelPending, nil
	case "all":
		return CancelAll, nil
	}
	return CancelNever, fmt.Errorf("unknown cancel mode %q", s)
}

// BatchRequest is everything one RunBatch call needs.
type BatchRequest struct {
	Files           []string
	OutputDir       string
	Transformations []string
	Topology        Topology
	Params          catalog.Params
	Cancel          CancelMode
}

// Engine executes batches against a transformation registry.
type Engine struct {
	registry   Resolver
	workers    int
	bufferSize int
	now        func() time.Time
	stat       func(name string) (os.FileInfo, error)
	rename     func(oldpath, newpath string) error
	remove     func(name string) error
	mkdirAll   func(path string, perm os.FileMode) error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithWorkers bounds concurrently running jobs. n <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		e.workers = n
	}
}

// WithEventBuffer sets the stream queue size.
func WithEventBuffer(n int) Option {
	return func(e *Engine) { e.bufferSize = n }
}

// NewEngine constructs the production engine with OS dependencies.
func NewEngine(registry Resolver, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		workers:    runtime.NumCPU(),
		bufferSize: DefaultEventBuffer,
		now:        time.Now,
		stat:       os.Stat,
		rename:     os.Rename,
		remove:     os.Remove,
		mkdirAll:   os.MkdirAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunBatch starts the batch in the background and returns its event stream.
func (e *Engine) RunBatch(ctx context.Context, req BatchRequest) *EventStream {
	stream := newEventStream(e.bufferSize)
	go e.run(ctx, req, stream)
	return stream
}

// batch is the shared state of one RunBatch call.
type batch struct {
	engine  *Engine
	req     BatchRequest
	ctx     context.Context
	stepCtx context.Context
	stream  *EventStream
	total   int
	done    atomic.Int64
	skipped atomic.Bool

	mu        sync.Mutex
	succeeded int
	failed    int
	outputs   []string
}

func (e *Engine) run(ctx context.Context, req BatchRequest, stream *EventStream) {
	b := &batch{engine: e, req: req, ctx: ctx, stream: stream}
	// only CancelAll lets the context reach external processes
	b.stepCtx = context.WithoutCancel(ctx)
	if req.Cancel == CancelAll {
		b.stepCtx = ctx
	}

	jobs, err := BuildJobs(req.Files, req.Transformations, req.Topology)
	if err != nil {
		b.fail(err.Error())
		return
	}
	if err := b.checkOutputNames(jobs); err != nil {
		b.fail(err.Error())
		return
	}
	if err := e.mkdirAll(req.OutputDir, 0o755); err != nil {
		b.fail(fmt.Sprintf("cannot create output directory: %v", err))
		return
	}

	b.total = TotalUnits(jobs)
	b.log(LevelInfo, fmt.Sprintf("Output directory: %s", req.OutputDir))
	b.log(LevelInfo, fmt.Sprintf("Selected %d transformations (%s)", len(jobs[0].Transformations), jobs[0].Topology))
	b.log(LevelInfo, fmt.Sprintf("Found %d files", len(jobs)))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
dispatch:
	for _, job := range jobs {
		if b.cancelled() {
			b.skipped.Store(true)
			break
		}
		if req.Cancel == CancelNever {
			sem <- struct{}{}
		} else {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				b.skipped.Store(true)
				break dispatch
			}
		}

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			if job.Topology == TopologyChained {
				b.runChained(job)
			} else {
				b.runIndependent(job)
			}
		}(job)
	}
	wg.Wait()

	summary := b.summary()
	if b.skipped.Load() {
		b.stream.finish(b.event(Event{
			Kind:    EventError,
			Level:   LevelError,
			Message: fmt.Sprintf("batch cancelled: %v", context.Cause(ctx)),
		}), summary)
		return
	}
	b.stream.finish(b.event(Event{
		Kind:     EventFinished,
		Message:  fmt.Sprintf("Batch finished: %d succeeded, %d failed", summary.Succeeded, summary.Failed),
		Fraction: 1,
	}), summary)
}

// cancelled reports whether new work must not start.
func (b *batch) cancelled() bool {
	return b.req.Cancel != CancelNever && b.ctx.Err() != nil
}

// advance adds n completed units and emits the new fraction.
func (b *batch) advance(n int) {
	done := b.done.Add(int64(n))
	fraction := 1.0
	if b.total > 0 {
		fraction = float64(done) / float64(b.total)
	}
	b.stream.send(b.event(Event{Kind: EventProgress, Fraction: fraction}))
}

func (b *batch) record(ok bool, output string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.succeeded++
		if output != "" {
			b.outputs = append(b.outputs, output)
		}
		return
	}
	b.failed++
}

func (b *batch) summary() BatchSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	outputs := append([]string(nil), b.outputs...)
	sort.Strings(outputs)
	return BatchSummary{
		Total:     b.total,
		Succeeded: b.succeeded,
		Failed:    b.failed,
		Outputs:   outputs,
	}
}

func (b *batch) event(ev Event) Event {
	ev.Time = b.engine.now()
	return ev
}

func (b *batch) log(level Level, msg string) {
	b.stream.send(b.event(Event{Kind: EventLog, Level: level, Message: msg}))
}

func (b *batch) stepLog(level Level, job Job, step, msg, output string) {
	b.stream.send(b.event(Event{
		Kind:    EventLog,
		Level:   level,
		Message: msg,
		File:    job.Input,
		Step:    step,
		Output:  output,
	}))
}

func (b *batch) fail(msg string) {
	b.stream.finish(b.event(Event{Kind: EventError, Level: LevelError, Message: msg}), b.summary())
}

// checkOutputNames rejects independent batches where two jobs would write the
// same {stem}_{tag}.{ext}, e.g. a.mp4 under tag "x_y" and a_x.mp4 under tag "y".
// Chained intermediates live in per-job work directories and need no check.
func (b *batch) checkOutputNames(jobs []Job) error {
	if len(jobs) == 0 || jobs[0].Topology != TopologyIndependent {
		return nil
	}
	owners := make(map[string]string)
	for _, job := range jobs {
		for _, id := range job.Transformations {
			t, err := b.engine.registry.Resolve(id)
			if err != nil {
				continue
			}
			out, err := conventionalOutput(job.Input, b.req.OutputDir, t.Tag())
			if err != nil {
				continue
			}
			name := filepath.Base(out)
			if owner, ok := owners[name]; ok && owner != job.Input {
				return fmt.Errorf("%w: %s (%s, %s)", ErrOutputCollision, name, filepath.Base(owner), filepath.Base(job.Input))
			}
			owners[name] = job.Input
		}
	}
	return nil
}

// applyStep resolves and runs one transformation writing into outputDir and
// confirms its output exists.
func (b *batch) applyStep(id, input, outputDir string) (string, error) {
	t, err := b.engine.registry.Resolve(id)
	if err != nil {
		return "", &StepError{File: input, Step: id, Err: err}
	}

	out, err := t.Apply(b.stepCtx, catalog.Request{
		InputPath: input,
		OutputDir: outputDir,
		Params:    b.req.Params,
	})
	if err != nil {
		return "", &StepError{File: input, Step: id, Err: err}
	}
	if out == "" {
		out, err = conventionalOutput(input, outputDir, t.Tag())
		if err != nil {
			return "", &StepError{File: input, Step: id, Err: err}
		}
	}
	if _, err := b.engine.stat(out); err != nil {
		return "", &StepError{File: input, Step: id, Err: fmt.Errorf("%w: %s", ErrMissingOutput, filepath.Base(out))}
	}
	return out, nil
}
