package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/nvr-ai/filterbench/profiler"
	"github.com/pkg/errors"
)

// Sampler measures one pass. profiler.Sampler is the production implementation.
type Sampler interface {
	Start() error
	Stop() (profiler.Sample, error)
}

// ThreadSetter changes the process-wide thread count consulted by the
// functions under test.
type ThreadSetter func(n int)

// RunOptions shapes the sweep.
type RunOptions struct {
	// Resolutions to test, in order.
	Resolutions []frames.Resolution
	// Threads is the thread-count sweep. Empty measures once under the
	// unbounded policy, recorded under thread key 0.
	Threads []int
	// Passes is the number of samples per cell.
	Passes int
	// Length is the frame count per pass at the smallest resolution.
	Length int
	// DynamicLength scales Length inversely with the pixel count.
	DynamicLength bool
}

// Validate checks the options.
func (o RunOptions) Validate() error {
	if len(o.Resolutions) == 0 {
		return errors.Wrap(ErrConfiguration, "no resolutions configured")
	}
	for _, r := range o.Resolutions {
		if !r.Valid() {
			return errors.Wrapf(ErrConfiguration, "invalid resolution %s", r)
		}
	}
	if o.Passes < 1 {
		return errors.Wrapf(ErrConfiguration, "passes must be >= 1, got %d", o.Passes)
	}
	if o.Length < 1 {
		return errors.Wrapf(ErrConfiguration, "length must be >= 1, got %d", o.Length)
	}
	for _, n := range o.Threads {
		if n < 0 {
			return errors.Wrapf(ErrConfiguration, "thread count must be >= 0, got %d", n)
		}
	}
	return nil
}

// threadSweep deduplicates and sorts the sweep so the single thread baseline
// is measured before the counts that need it.
func threadSweep(threads []int) []int {
	if len(threads) == 0 {
		return []int{0}
	}
	seen := make(map[int]bool, len(threads))
	out := make([]int, 0, len(threads))
	for _, n := range threads {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// Engine runs test cases and collects their metrics.
type Engine struct {
	logger     *slog.Logger
	sampler    Sampler
	source     frames.Source
	renderer   frames.Realizer
	setThreads ThreadSetter
	applied    int // last value passed to setThreads
	console    io.Writer
	progress   io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSampler replaces the process sampler.
func WithSampler(s Sampler) Option {
	return func(e *Engine) { e.sampler = s }
}

// WithSource replaces the synthetic frame source.
func WithSource(s frames.Source) Option {
	return func(e *Engine) { e.source = s }
}

// WithRenderer replaces the render driver.
func WithRenderer(r frames.Realizer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithThreadSetter replaces the thread-count control.
func WithThreadSetter(fn ThreadSetter) Option {
	return func(e *Engine) { e.setThreads = fn }
}

// WithConsole sets where user facing errors are echoed.
func WithConsole(w io.Writer) Option {
	return func(e *Engine) { e.console = w }
}

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// NewEngine creates an engine. Unset collaborators default to the process
// sampler, frames.BlankSource, frames.Renderer and frames.SetThreads.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:     slog.Default(),
		source:     frames.BlankSource{},
		renderer:   frames.Renderer{},
		setThreads: frames.SetThreads,
		console:    io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampler == nil {
		s, err := profiler.NewSampler()
		if err != nil {
			return nil, errors.Wrap(err, "create sampler")
		}
		e.sampler = s
	}
	return e, nil
}

// frameCount returns the frames per pass at res. With dynamic length the
// count is scaled by smallest/res pixels and never drops below one.
func frameCount(opts RunOptions, res frames.Resolution) int {
	if !opts.DynamicLength {
		return opts.Length
	}
	smallest := opts.Resolutions[0].Pixels()
	for _, r := range opts.Resolutions[1:] {
		smallest = min(smallest, r.Pixels())
	}
	scaled := math.Round(float64(opts.Length) * float64(smallest) / float64(res.Pixels()))
	return max(1, int(scaled))
}

type baselineKey struct {
	id         CaseID
	resolution frames.Resolution
	format     frames.Format
}

// formatGroup holds the cases of one format in generation order.
type formatGroup struct {
	format frames.Format
	cases  []TestCase
}

func groupByFormat(cases []TestCase) []formatGroup {
	var groups []formatGroup
	index := map[frames.Format]int{}
	for _, tc := range cases {
		i, ok := index[tc.Format]
		if !ok {
			i = len(groups)
			index[tc.Format] = i
			groups = append(groups, formatGroup{format: tc.Format})
		}
		groups[i].cases = append(groups[i].cases, tc)
	}
	return groups
}

// Run measures every case at every resolution and thread count.
//
// The sweep is sequential: resolution, then format, then case, then thread
// count, then pass. A failing pass is logged and recorded as NaN and the
// sweep continues. An input that cannot be built for a (resolution, format)
// skips the cells depending on it. When ctx is cancelled the partial store is
// returned with an error matching ErrInterrupted; cells whose passes did not
// all complete are discarded.
//
// Arguments:
// - ctx: Cancels the sweep.
// - cases: The validated test cases.
// - opts: The sweep shape.
//
// Returns:
// - The results store and nil, or the partial store and ErrInterrupted.
func (e *Engine) Run(ctx context.Context, cases []TestCase, opts RunOptions) (*Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := e.logger.With("run", runID)
	store := NewStore()
	sweep := threadSweep(opts.Threads)
	groups := groupByFormat(cases)
	baselines := map[baselineKey]float64{}
	series := profiler.NewSeries()

	total := len(opts.Resolutions) * len(cases) * len(sweep) * opts.Passes
	bar := newProgressBar(e.progress, total)
	defer bar.finish()

	log.Info("benchmark started",
		"cases", len(cases),
		"resolutions", len(opts.Resolutions),
		"threads", fmt.Sprint(sweep),
		"passes", opts.Passes)
	if total == 0 {
		log.Warn("no test cases to run")
		return store, nil
	}

	for _, res := range opts.Resolutions {
		length := frameCount(opts, res)
		for _, group := range groups {
			if _, err := e.source.CreateInput(group.format, res.Width, res.Height, length); err != nil {
				log.Error("cannot create input, skipping",
					"resolution", res.String(), "format", group.format.String(), "error", err)
				fmt.Fprintf(e.console, "Error: cannot create %s input at %s: %v\n", group.format, res, err)
				bar.add(len(group.cases) * len(sweep) * opts.Passes)
				continue
			}

			for _, tc := range group.cases {
				id := tc.ID()
				for _, threads := range sweep {
					cell := cellContext{res: res, format: group.format, threads: threads, length: length}
					if err := e.measure(ctx, log, bar, store, tc, cell, opts.Passes, series); err != nil {
						log.Warn("benchmark interrupted", "completed_cells", store.Len())
						fmt.Fprintln(e.console, "Benchmarking interrupted.")
						return store, err
					}

					key := baselineKey{id: id, resolution: res, format: group.format}
					baseline, hasBaseline := baselines[key]
					agg := aggregate(series, length, threads, baseline, hasBaseline)
					if threads == 1 && !math.IsNaN(agg[Time]) {
						baselines[key] = agg[Time]
					}
					store.Put(id, res, group.format, threads, agg)
					log.Info("cell complete",
						"function", tc.Label,
						"params", tc.Params.String(),
						"resolution", res.String(),
						"format", group.format.String(),
						"threads", threads,
						"time", agg[Time],
						"fps", agg[FPS])
				}
			}
		}
	}
	log.Info("benchmark finished", "cells", store.Len())
	return store, nil
}

type cellContext struct {
	res     frames.Resolution
	format  frames.Format
	threads int
	length  int
}

// measure runs the passes of one cell into series. It only fails when ctx is
// cancelled; pass failures are recorded as NaN samples.
func (e *Engine) measure(ctx context.Context, log *slog.Logger, bar *progressBar, store *Store, tc TestCase, cell cellContext, passes int, series *profiler.Series) error {
	series.Reset()
	id := tc.ID()
	// The unbounded policy leaves the runtime default alone unless an
	// earlier cell bounded it.
	if cell.threads != e.applied {
		e.setThreads(cell.threads)
		e.applied = cell.threads
	}

	for pass := 1; pass <= passes; pass++ {
		if ctx.Err() != nil {
			return errors.Wrap(ErrInterrupted, ctx.Err().Error())
		}
		bar.describe(fmt.Sprintf("%s, threads %d, pass %d", tc, cell.threads, pass))

		sample, err := e.pass(ctx, tc, cell)
		if err != nil && ctx.Err() != nil {
			return errors.Wrap(ErrInterrupted, ctx.Err().Error())
		}
		record := Record{ID: id, Resolution: cell.res, Format: cell.format, Threads: cell.threads, Pass: pass}
		if err != nil {
			log.Error("pass failed",
				"function", tc.Label,
				"params", tc.Params.String(),
				"resolution", cell.res.String(),
				"format", cell.format.String(),
				"threads", cell.threads,
				"pass", pass,
				"error", err)
			fmt.Fprintf(e.console, "Error: %s at %s, threads %d, pass %d: %v\n", tc, cell.res, cell.threads, pass, err)
			series.Fail()
			record.Time, record.FPS = math.NaN(), math.NaN()
		} else {
			series.Record(sample)
			record.Time = sample.Elapsed.Seconds()
			record.FPS = float64(cell.length) / record.Time
			log.Debug("pass complete",
				"function", tc.Label,
				"pass", pass,
				"elapsed", sample.Elapsed.Seconds())
		}
		store.AddRecord(record)
		bar.add(1)
	}
	return nil
}

// pass builds the input, then measures Invoke plus full realization.
func (e *Engine) pass(ctx context.Context, tc TestCase, cell cellContext) (profiler.Sample, error) {
	input, err := e.source.CreateInput(cell.format, cell.res.Width, cell.res.Height, cell.length)
	if err != nil {
		return profiler.Sample{}, errors.Wrapf(ErrExecution, "create input: %v", err)
	}

	if err := e.sampler.Start(); err != nil {
		return profiler.Sample{}, errors.Wrapf(ErrExecution, "start sampler: %v", err)
	}
	out, runErr := tc.Filter.Invoke(input, tc.Params)
	if runErr == nil {
		runErr = e.renderer.Realize(ctx, out)
	}
	sample, stopErr := e.sampler.Stop()

	if runErr != nil {
		return profiler.Sample{}, errors.Wrap(ErrExecution, runErr.Error())
	}
	if stopErr != nil {
		return profiler.Sample{}, errors.Wrapf(ErrExecution, "stop sampler: %v", stopErr)
	}
	return sample, nil
}
