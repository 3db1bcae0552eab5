// Package sweep evaluates one corpus under several run configurations and
// ranks them. Each configuration is timed and its memory use recorded, so a
// sweep answers both which configuration recovers the most text and what it
// costs.
package sweep

import (
	"cmp"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/score"
)

// Timer measures the wall time of one configuration.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	SysBytes        uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
	}
}

// Result is the outcome of evaluating the corpus under one configuration.
type Result struct {
	Config       document.RunConfig
	Report       *report.Report
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Error        error
}

// Allocated returns the bytes allocated while the configuration ran.
func (r Result) Allocated() uint64 {
	return r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes
}

// MinCoverage returns the lowest document character coverage, or -1 when
// the configuration failed or no document had a defined coverage.
func (r Result) MinCoverage() float64 {
	if r.Error != nil || r.Report == nil || r.Report.Aggregate.CharCoverage.Count == 0 {
		return -1
	}
	return r.Report.Aggregate.CharCoverage.Min
}

// MeanCoverage returns the mean document character coverage, or -1.
func (r Result) MeanCoverage() float64 {
	if r.Error != nil || r.Report == nil || r.Report.Aggregate.CharCoverage.Count == 0 {
		return -1
	}
	return r.Report.Aggregate.CharCoverage.Mean
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Config, r.Error)
	}
	agg := r.Report.Aggregate
	return fmt.Sprintf("%s: min %.2f%%, mean %.2f%%, worst page %.2f%%, failed %d/%d, %v, alloc %d KB",
		r.Config, agg.CharCoverage.Min*100, agg.CharCoverage.Mean*100, agg.PageCoverage.Min*100,
		agg.FailedDocuments, agg.Documents, r.Duration.Round(time.Millisecond), r.Allocated()/1024)
}

// Configurations returns every combination of engines, colorspaces and
// resolutions in that nesting order, without duplicates.
func Configurations(engines []document.EngineID, colorspaces []document.Colorspace, dpis []int) []document.RunConfig {
	var out []document.RunConfig
	for _, e := range engines {
		for _, cs := range colorspaces {
			for _, dpi := range dpis {
				cfg := document.RunConfig{Engine: e, Colorspace: cs, DPI: dpi}
				if !slices.Contains(out, cfg) {
					out = append(out, cfg)
				}
			}
		}
	}
	return out
}

// Sweep runs a ground-truth evaluation per configuration.
type Sweep struct {
	runner  *eval.Runner
	configs []document.RunConfig
	logger  *slog.Logger

	mu      sync.Mutex
	results []Result
}

// New creates a sweep over configs using runner.
func New(runner *eval.Runner, configs []document.RunConfig, logger *slog.Logger) *Sweep {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweep{runner: runner, configs: configs, logger: logger}
}

// Validate checks every configuration before any document is read.
func (s *Sweep) Validate(inputs []eval.Input) error {
	if len(s.configs) == 0 {
		return document.ConfigurationInvalid("no configurations to sweep")
	}
	for _, cfg := range s.configs {
		if err := s.runner.Validate(s.job(cfg, inputs)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweep) job(cfg document.RunConfig, inputs []eval.Input) eval.Job {
	return eval.Job{Mode: score.ModeGroundTruth, Inputs: inputs, Primary: cfg}
}

// Run evaluates inputs under every configuration in turn. Configurations run
// one after another so the memory figures of one are not mixed with another;
// documents within a configuration use the runner's workers. A cancelled
// context stops the sweep after the running configuration.
func (s *Sweep) Run(ctx context.Context, inputs []eval.Input) ([]Result, error) {
	if err := s.Validate(inputs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make([]Result, 0, len(s.configs))

	for _, cfg := range s.configs {
		if err := ctx.Err(); err != nil {
			return s.results, err
		}
		res := s.runConfig(ctx, cfg, inputs)
		s.results = append(s.results, res)
		s.logger.Info("configuration evaluated", "config", cfg.String(),
			"duration_ms", res.Duration.Milliseconds(), "min_coverage", res.MinCoverage())
	}
	return s.results, ctx.Err()
}

func (s *Sweep) runConfig(ctx context.Context, cfg document.RunConfig, inputs []eval.Input) Result {
	runtime.GC()
	res := Result{Config: cfg, MemoryBefore: GetMemoryStats()}
	timer := NewTimer(cfg.String())
	res.Report, res.Error = s.runner.Run(ctx, s.job(cfg, inputs))
	res.Duration = timer.Stop()
	res.MemoryAfter = GetMemoryStats()
	return res
}

// Results returns the results of the last run.
func (s *Sweep) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Rank orders results best first: by minimum coverage, then mean coverage,
// then duration. Failed configurations come last.
func Rank(results []Result) []Result {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b Result) int {
		if c := cmp.Compare(b.MinCoverage(), a.MinCoverage()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.MeanCoverage(), a.MeanCoverage()); c != 0 {
			return c
		}
		return cmp.Compare(a.Duration, b.Duration)
	})
	return ranked
}

// WriteText prints one ranked line per configuration.
func WriteText(w io.Writer, results []Result) error {
	var b strings.Builder
	b.WriteString("Sweep Results:\n")
	b.WriteString("==============\n")
	for i, r := range Rank(results) {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, r.String())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCSV writes one ranked row per configuration.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	header := []string{"rank", "engine", "colorspace", "dpi", "documents", "failed_documents",
		"min_char_coverage", "mean_char_coverage", "min_page_coverage", "worst_document", "duration_ms", "alloc_kb", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range Rank(results) {
		row := []string{strconv.Itoa(i + 1), string(r.Config.Engine), string(r.Config.Colorspace), strconv.Itoa(r.Config.DPI)}
		if r.Error != nil || r.Report == nil {
			row = append(row, "", "", "", "", "", "")
		} else {
			agg := r.Report.Aggregate
			row = append(row,
				strconv.Itoa(agg.Documents),
				strconv.Itoa(agg.FailedDocuments),
				formatRatio(agg.CharCoverage),
				strconv.FormatFloat(agg.CharCoverage.Mean, 'f', 4, 64),
				formatRatio(agg.PageCoverage),
				agg.CharCoverage.MinID,
			)
		}
		errText := ""
		if r.Error != nil {
			errText = r.Error.Error()
		}
		row = append(row, strconv.FormatInt(r.Duration.Milliseconds(), 10), strconv.FormatUint(r.Allocated()/1024, 10), errText)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRatio(d score.Distribution) string {
	if d.Count == 0 {
		return ""
	}
	return strconv.FormatFloat(d.Min, 'f', 4, 64)
}
