// Package eval runs evaluation jobs: every input document is normalized,
// extracted and scored against ground truth or a second run, independently of
// the other documents, and the results are collected into a report.
package eval

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/groundtruth"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/MeKo-Tech/ocreval/internal/overlay"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/score"
)

// Input is one document of a job.
type Input struct {
	Path            string
	GroundTruthPath string
}

// Job describes one evaluation question. Mode selects what the primary run
// is compared with: the ground truth of each input, or a secondary run that
// uses another engine or another configuration of the same engine. Baseline
// is an optional lossless run used to attribute normalization loss.
type Job struct {
	Mode      score.Mode
	Inputs    []Input
	Primary   document.RunConfig
	Secondary *document.RunConfig
	Baseline  *document.RunConfig
}

// Options configure a Runner.
type Options struct {
	// Workers is the number of documents processed concurrently (0 = runtime.NumCPU()).
	Workers   int
	Normalize normalize.Options
	Score     score.Options
	Progress  ProgressCallback
	// OverlayDir, when set, receives overlay images of the primary run.
	OverlayDir string
	OverlayPDF bool
	Overlay    overlay.Options
}

// DefaultOptions returns the runner defaults.
func DefaultOptions() Options {
	return Options{
		Workers:   runtime.NumCPU(),
		Normalize: normalize.DefaultOptions(),
		Score:     score.DefaultOptions(),
		Overlay:   overlay.DefaultOptions(),
	}
}

// Runner executes jobs. It holds no per-job state and may run several jobs
// one after another; metrics accumulate across them.
type Runner struct {
	registry   *extract.Registry
	normalizer *normalize.Normalizer
	opts       Options
	logger     *slog.Logger
	metrics    *Metrics
}

// NewRunner creates a runner using engines from registry.
func NewRunner(registry *extract.Registry, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Progress == nil {
		opts.Progress = NoOpProgressCallback{}
	}
	return &Runner{
		registry:   registry,
		normalizer: normalize.New(opts.Normalize, logger),
		opts:       opts,
		logger:     logger,
		metrics:    NewMetrics(),
	}
}

// Metrics returns the runner's metrics.
func (r *Runner) Metrics() *Metrics { return r.metrics }

// plan is a validated job with its engines.
type plan struct {
	job       Job
	reference string
	primary   extract.Engine
	secondary extract.Engine
	baseline  extract.Engine
}

// Validate checks the job and every run configuration it names against the
// engine capabilities. Errors are ConfigurationInvalid.
func (r *Runner) Validate(job Job) error {
	_, err := r.prepare(job)
	return err
}

func (r *Runner) prepare(job Job) (*plan, error) {
	mode, err := score.ParseMode(string(job.Mode))
	if err != nil {
		return nil, document.ConfigurationInvalid("%w", err)
	}
	job.Mode = mode
	if len(job.Inputs) == 0 {
		return nil, document.ConfigurationInvalid("no input documents")
	}

	p := &plan{job: job}
	if p.primary, err = r.registry.ValidateRunConfig(job.Primary); err != nil {
		return nil, err
	}
	switch mode {
	case score.ModeGroundTruth:
		p.reference = score.GroundTruthSource
	case score.ModeEngines, score.ModeConfigurations:
		if job.Secondary == nil {
			return nil, document.ConfigurationInvalid("%s mode needs a second run configuration", mode)
		}
		if mode == score.ModeConfigurations {
			if job.Secondary.Engine != job.Primary.Engine {
				return nil, document.ConfigurationInvalid("configurations mode compares one engine, got %s and %s",
					job.Primary.Engine, job.Secondary.Engine)
			}
			if *job.Secondary == job.Primary {
				return nil, document.ConfigurationInvalid("configurations mode needs two different configurations, got %s twice", job.Primary)
			}
		}
		if p.secondary, err = r.registry.ValidateRunConfig(*job.Secondary); err != nil {
			return nil, err
		}
		p.reference = job.Secondary.String()
	}
	if job.Baseline != nil {
		if mode != score.ModeGroundTruth {
			return nil, document.ConfigurationInvalid("a baseline run needs ground_truth mode")
		}
		if p.baseline, err = r.registry.ValidateRunConfig(*job.Baseline); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type docJob struct {
	index int
	input Input
}

type docResult struct {
	index  int
	result report.DocumentResult
}

// Run evaluates every input of job and returns the report. Configuration
// errors abort before any document is touched. Document failures are
// recorded in the report. When ctx is cancelled the documents that did not
// finish are recorded as cancelled and the report is returned with ctx's error.
func (r *Runner) Run(ctx context.Context, job Job) (*report.Report, error) {
	p, err := r.prepare(job)
	if err != nil {
		return nil, err
	}
	rep := report.New(p.job.Mode, p.job.Primary)
	rep.Secondary = p.job.Secondary
	rep.Baseline = p.job.Baseline

	r.logger.Info("evaluation started",
		"run_id", rep.RunID, "mode", p.job.Mode, "config", p.job.Primary.String(),
		"reference", p.reference, "documents", len(p.job.Inputs), "workers", r.opts.Workers)

	rep.Documents = r.runAll(ctx, p)
	rep.Finalize()

	r.logger.Info("evaluation finished",
		"run_id", rep.RunID,
		"documents", rep.Aggregate.Documents,
		"failed", rep.Aggregate.FailedDocuments,
		"min_char_coverage", rep.Aggregate.CharCoverage.Min,
		"mean_char_coverage", rep.Aggregate.CharCoverage.Mean)
	return rep, ctx.Err()
}

// runAll processes documents on a worker pool and returns results in input order.
func (r *Runner) runAll(ctx context.Context, p *plan) []report.DocumentResult {
	inputs := p.job.Inputs
	progress := r.opts.Progress
	progress.OnStart(len(inputs))
	defer progress.OnComplete()

	workers := min(r.opts.Workers, len(inputs))
	jobs := make(chan docJob)
	results := make(chan docResult, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- docResult{index: j.index, result: r.evaluate(ctx, p, j.input)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- docJob{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]report.DocumentResult, len(inputs))
	done := make([]bool, len(inputs))
	processed := 0
	for res := range results {
		out[res.index] = res.result
		done[res.index] = true
		processed++
		progress.OnProgress(processed, len(inputs))
		if fs := res.result.Result.Failures; len(fs) > 0 {
			progress.OnError(res.result.DocumentID, fmt.Errorf("%s: %s", fs[0].Kind, fs[0].Message))
		}
	}

	for i, in := range inputs {
		if done[i] {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		id := normalize.DocumentID(in.Path)
		res := score.FailedResult(id, p.job.Primary.String(), p.reference, p.job.Mode,
			document.NewFailure(document.KindCancelled, id, cause))
		r.metrics.observeResult(res)
		out[i] = report.DocumentResult{DocumentID: id, Source: in.Path, GroundTruth: in.GroundTruthPath, Result: res}
	}
	return out
}

// evaluate runs the full pipeline for one document.
func (r *Runner) evaluate(ctx context.Context, p *plan, in Input) report.DocumentResult {
	start := time.Now()
	id := normalize.DocumentID(in.Path)
	res := r.compare(ctx, p, in, id)
	r.metrics.observeResult(res)

	r.logger.Info("document evaluated",
		"document", id,
		"config", p.job.Primary.String(),
		"reference", p.reference,
		"char_coverage", res.Coverage.Char.String(),
		"word_coverage", res.Coverage.Word.String(),
		"failures", len(res.Failures),
		"duration", time.Since(start).Round(time.Millisecond))

	return report.DocumentResult{
		DocumentID:  id,
		Source:      in.Path,
		GroundTruth: in.GroundTruthPath,
		DurationMS:  time.Since(start).Milliseconds(),
		Result:      res,
	}
}

func (r *Runner) compare(ctx context.Context, p *plan, in Input, id string) score.ComparisonResult {
	fail := func(err error) score.ComparisonResult {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			err = document.NewFailure(document.KindCancelled, id, err)
		}
		return score.FailedResult(id, p.job.Primary.String(), p.reference, p.job.Mode, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	switch p.job.Mode {
	case score.ModeEngines, score.ModeConfigurations:
		norm, a, err := r.extract(ctx, p.primary, p.job.Primary, in.Path)
		if err != nil {
			return fail(err)
		}
		_, b, err := r.extract(ctx, p.secondary, *p.job.Secondary, in.Path)
		if err != nil {
			return fail(err)
		}
		start := time.Now()
		res := score.CompareEngines(a, b, r.opts.Score)
		res.Mode = p.job.Mode
		r.metrics.observeStage("score", start)
		r.writeOverlay(norm, a, b)
		return res

	default:
		if in.GroundTruthPath == "" {
			return fail(document.NewFailure(document.KindAlignmentAmbiguity, id, groundtruth.ErrNotFound))
		}
		gt, err := groundtruth.Load(in.GroundTruthPath)
		if err != nil {
			return fail(document.NewFailure(document.KindAlignmentAmbiguity, id, err))
		}
		norm, doc, err := r.extract(ctx, p.primary, p.job.Primary, in.Path)
		if err != nil {
			return fail(err)
		}
		start := time.Now()
		res := score.CompareGroundTruth(doc, gt, r.opts.Score)
		if p.baseline != nil && res.Breakdown != nil {
			_, base, err := r.extract(ctx, p.baseline, *p.job.Baseline, in.Path)
			switch {
			case err == nil:
				res.Breakdown = score.LossBreakdown(doc, base, gt, r.opts.Score)
			case ctx.Err() != nil:
				return fail(err)
			default:
				r.logger.Warn("baseline run failed; normalization loss left undefined",
					"document", id, "config", p.job.Baseline.String(), "error", err)
			}
		}
		r.metrics.observeStage("score", start)
		r.writeOverlay(norm, doc, nil)
		return res
	}
}

// extract normalizes the document at path for cfg and runs e over it.
// Rasters are only produced for engines that read pixels.
func (r *Runner) extract(ctx context.Context, e extract.Engine, cfg document.RunConfig, path string) (*normalize.Document, *document.Document, error) {
	start := time.Now()
	norm, err := r.normalizer.Normalize(ctx, path, cfg, e.Capabilities().NeedsRaster)
	r.metrics.observeStage("normalize", start)
	if err != nil {
		return nil, nil, err
	}

	start = time.Now()
	doc, err := extract.Run(ctx, e, norm, r.logger)
	r.metrics.observeStage("extract", start)
	if err != nil {
		return nil, nil, err
	}
	r.metrics.observePages(doc)
	return norm, doc, nil
}

var configPathReplacer = strings.NewReplacer("/", "_", "@", "_")

// writeOverlay renders the inspection overlay of doc. Failures are logged and
// never affect the result.
func (r *Runner) writeOverlay(norm *normalize.Document, doc, raw *document.Document) {
	if r.opts.OverlayDir == "" {
		return
	}
	images := func(index int) image.Image {
		for _, p := range norm.Pages {
			if p.Index == index {
				return p.Image
			}
		}
		return nil
	}
	pages := overlay.RenderDocument(doc, raw, images, r.opts.Overlay)
	dir := filepath.Join(r.opts.OverlayDir, configPathReplacer.Replace(doc.Config.String()))
	if _, err := overlay.WritePNGs(filepath.Join(dir, doc.ID), doc.ID, pages); err != nil {
		r.logger.Warn("failed to write overlay images", "document", doc.ID, "error", err)
	}
	if r.opts.OverlayPDF {
		if err := overlay.WritePDF(filepath.Join(dir, doc.ID+".pdf"), pages); err != nil {
			r.logger.Warn("failed to write overlay PDF", "document", doc.ID, "error", err)
		}
	}
}
