package eval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/MeKo-Tech/ocreval/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEngine returns canned page texts per document id.
type scriptedEngine struct {
	id    document.EngineID
	texts map[string][]string
	// started receives the id of every document the engine is asked for.
	started chan string
	// block makes Extract wait for cancellation.
	block bool
}

func (e *scriptedEngine) ID() document.EngineID { return e.id }

func (e *scriptedEngine) Capabilities() extract.Capabilities {
	return extract.Capabilities{Inputs: []normalize.Kind{normalize.KindPDF}}
}

func (e *scriptedEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	if e.started != nil {
		e.started <- doc.ID
	}
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out := &document.Document{}
	for i, text := range e.texts[doc.ID] {
		p := document.Page{Index: i}
		if text != "" {
			p.Regions = []document.TextRegion{{
				BBox:  document.BBox{X0: 72, Y0: 80, X1: 400, Y1: 95},
				Text:  text,
				Label: document.LabelBodyText,
			}}
		}
		out.Pages = append(out.Pages, p)
	}
	return out, nil
}

func newTestRunner(t *testing.T, opts Options, engines ...*scriptedEngine) *Runner {
	t.Helper()
	reg := extract.NewRegistry()
	for _, e := range engines {
		reg.Register(e.id, func() (extract.Engine, error) { return e, nil })
	}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	opts.Score = score.DefaultOptions()
	return NewRunner(reg, opts, nil)
}

// writeInput writes a PDF with n pages and, when transcript is non-empty, a
// text transcript next to it.
func writeInput(t *testing.T, dir, id string, pages int, transcript string) Input {
	t.Helper()
	var pp []testutil.PDFPage
	for i := range pages {
		pp = append(pp, testutil.TextPage(strings.Repeat("x", i+1)))
	}
	in := Input{Path: testutil.WritePDF(t, dir, id+".pdf", pp...)}
	if transcript != "" {
		in.GroundTruthPath = testutil.WriteFile(t, dir, id+".txt", []byte(transcript))
	}
	return in
}

func cfg(engine string) document.RunConfig {
	return document.RunConfig{Engine: document.EngineID(engine), Colorspace: document.ColorspaceGray, DPI: 300}
}

func TestRunner_GroundTruthPerPage(t *testing.T) {
	dir := t.TempDir()
	pages := []string{
		"Introduction to the annual report",
		"Contents chapter one chapter two",
		"Closing remarks and signatures",
	}
	eng := &scriptedEngine{id: "fake", texts: map[string][]string{
		"report": {pages[0], "", pages[2]},
	}}
	r := newTestRunner(t, Options{}, eng)

	rep, err := r.Run(context.Background(), Job{
		Mode:    score.ModeGroundTruth,
		Inputs:  []Input{writeInput(t, dir, "report", 3, strings.Join(pages, "\f"))},
		Primary: cfg("fake"),
	})
	require.NoError(t, err)
	require.Len(t, rep.Documents, 1)

	res := rep.Documents[0].Result
	assert.Equal(t, "report", rep.Documents[0].DocumentID)
	assert.Equal(t, "fake/gray@300", res.Source)
	assert.Equal(t, score.GroundTruthSource, res.Reference)
	require.Len(t, res.Pages, 3)
	assert.InDelta(t, 1.0, res.Pages[0].Coverage.Char.Value, 1e-9)
	assert.True(t, res.Pages[1].Coverage.Char.Defined)
	assert.InDelta(t, 0.0, res.Pages[1].Coverage.Char.Value, 1e-9)
	assert.InDelta(t, 1.0, res.Pages[2].Coverage.Char.Value, 1e-9)

	cov := res.Coverage.Char
	require.True(t, cov.Defined)
	assert.Greater(t, cov.Value, 0.5)
	assert.Less(t, cov.Value, 0.8)

	require.NotEmpty(t, rep.Aggregate.WorstPages)
	assert.Equal(t, "report#p2", rep.Aggregate.WorstPages[0].ID())
	assert.Equal(t, 1, rep.Aggregate.Documents)
}

func TestRunner_KeepsInputOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	eng := &scriptedEngine{id: "fake", texts: map[string][]string{
		"a": {"alpha text"},
		"b": {"beta text"},
		"c": {"gamma text"},
	}}
	r := newTestRunner(t, Options{Workers: 3}, eng)

	inputs := []Input{
		writeInput(t, dir, "a", 1, "alpha text"),
		writeInput(t, dir, "b", 1, ""),
		{Path: filepath.Join(dir, "c.pdf"), GroundTruthPath: filepath.Join(dir, "c.txt")},
	}
	rep, err := r.Run(context.Background(), Job{Inputs: inputs, Primary: cfg("fake")})
	require.NoError(t, err)
	assert.Equal(t, score.ModeGroundTruth, rep.Mode)
	require.Len(t, rep.Documents, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		rep.Documents[0].DocumentID, rep.Documents[1].DocumentID, rep.Documents[2].DocumentID,
	})

	a := rep.Documents[0].Result
	assert.Empty(t, a.Failures)
	assert.InDelta(t, 1.0, a.Coverage.Char.Value, 1e-9)

	b := rep.Documents[1].Result
	assert.True(t, b.HasFailure(document.KindAlignmentAmbiguity), "no transcript")
	assert.False(t, b.Coverage.Char.Defined)

	c := rep.Documents[2].Result
	assert.True(t, c.HasFailure(document.KindAlignmentAmbiguity), "missing transcript is checked first")
	assert.False(t, c.Coverage.Char.Defined)
}

func TestRunner_MissingInputIsNormalizationFailure(t *testing.T) {
	dir := t.TempDir()
	gt := testutil.WriteFile(t, dir, "gone.txt", []byte("some text"))
	r := newTestRunner(t, Options{}, &scriptedEngine{id: "fake"})

	rep, err := r.Run(context.Background(), Job{
		Inputs:  []Input{{Path: filepath.Join(dir, "gone.pdf"), GroundTruthPath: gt}},
		Primary: cfg("fake"),
	})
	require.NoError(t, err)
	res := rep.Documents[0].Result
	assert.True(t, res.HasFailure(document.KindNormalization))
	assert.True(t, res.Coverage.Char.Defined)
	assert.Zero(t, res.Coverage.Char.Value)
	assert.Equal(t, 1, rep.Aggregate.FailedDocuments)
}

func TestRunner_CompareEngines(t *testing.T) {
	dir := t.TempDir()
	texts := map[string][]string{"memo": {"the quick brown fox", "jumps over the dog"}}
	a := &scriptedEngine{id: "a", texts: texts}
	b := &scriptedEngine{id: "b", texts: texts}
	r := newTestRunner(t, Options{}, a, b)
	in := writeInput(t, dir, "memo", 2, "")

	secondary := cfg("b")
	rep, err := r.Run(context.Background(), Job{
		Mode:      score.ModeEngines,
		Inputs:    []Input{in},
		Primary:   cfg("a"),
		Secondary: &secondary,
	})
	require.NoError(t, err)
	res := rep.Documents[0].Result
	assert.Equal(t, score.ModeEngines, res.Mode)
	assert.Equal(t, "b/gray@300", res.Reference)
	require.NotNil(t, res.Agreement)
	assert.InDelta(t, 1.0, res.Agreement.Char.Value, 1e-9)
	assert.InDelta(t, 1.0, res.Agreement.Word.Value, 1e-9)
	assert.Equal(t, "b/gray@300", rep.Reference())

	// the same engine and configuration twice agrees with itself
	same := cfg("a")
	rep, err = r.Run(context.Background(), Job{Mode: score.ModeEngines, Inputs: []Input{in}, Primary: cfg("a"), Secondary: &same})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.Documents[0].Result.Agreement.Char.Value, 1e-9)
}

func TestRunner_CompareConfigurations(t *testing.T) {
	dir := t.TempDir()
	eng := &scriptedEngine{id: "fake", texts: map[string][]string{"memo": {"same text either way"}}}
	r := newTestRunner(t, Options{}, eng)

	secondary := document.RunConfig{Engine: "fake", Colorspace: document.ColorspaceRGB, DPI: 150}
	rep, err := r.Run(context.Background(), Job{
		Mode:      score.ModeConfigurations,
		Inputs:    []Input{writeInput(t, dir, "memo", 1, "")},
		Primary:   cfg("fake"),
		Secondary: &secondary,
	})
	require.NoError(t, err)
	res := rep.Documents[0].Result
	assert.Equal(t, score.ModeConfigurations, res.Mode)
	assert.Equal(t, "fake/rgb@150", res.Reference)
	assert.InDelta(t, 1.0, res.Coverage.Char.Value, 1e-9)
}

func TestRunner_Validate(t *testing.T) {
	r := newTestRunner(t, Options{}, &scriptedEngine{id: "a"}, &scriptedEngine{id: "b"})
	inputs := []Input{{Path: "x.pdf"}}
	b := cfg("b")
	a2 := document.RunConfig{Engine: "a", Colorspace: document.ColorspaceRGB, DPI: 300}
	same := cfg("a")

	tests := []struct {
		name string
		job  Job
	}{
		{"unknown mode", Job{Mode: "vibes", Inputs: inputs, Primary: cfg("a")}},
		{"no inputs", Job{Primary: cfg("a")}},
		{"unknown engine", Job{Inputs: inputs, Primary: cfg("nope")}},
		{"engines without second run", Job{Mode: score.ModeEngines, Inputs: inputs, Primary: cfg("a")}},
		{"configurations across engines", Job{Mode: score.ModeConfigurations, Inputs: inputs, Primary: cfg("a"), Secondary: &b}},
		{"configurations identical", Job{Mode: score.ModeConfigurations, Inputs: inputs, Primary: cfg("a"), Secondary: &same}},
		{"baseline outside ground truth", Job{Mode: score.ModeEngines, Inputs: inputs, Primary: cfg("a"), Secondary: &b, Baseline: &a2}},
		{"unknown baseline engine", Job{Inputs: inputs, Primary: cfg("a"), Baseline: &document.RunConfig{Engine: "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.job)
			assert.ErrorIs(t, err, document.ErrConfigurationInvalid)

			rep, err := r.Run(context.Background(), tt.job)
			assert.Error(t, err)
			assert.Nil(t, rep, "configuration errors abort before any document")
		})
	}

	assert.NoError(t, r.Validate(Job{Mode: score.ModeConfigurations, Inputs: inputs, Primary: cfg("a"), Secondary: &a2}))
}

func TestRunner_Cancellation(t *testing.T) {
	dir := t.TempDir()
	eng := &scriptedEngine{id: "fake", block: true, started: make(chan string, 3)}
	r := newTestRunner(t, Options{Workers: 1}, eng)

	var inputs []Input
	for _, id := range []string{"one", "two", "three"} {
		inputs = append(inputs, writeInput(t, dir, id, 1, "text"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-eng.started
		cancel()
	}()

	rep, err := r.Run(ctx, Job{Inputs: inputs, Primary: cfg("fake")})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	require.Len(t, rep.Documents, 3)
	for _, d := range rep.Documents {
		assert.True(t, d.Result.HasFailure(document.KindCancelled), d.DocumentID)
		assert.False(t, d.Result.Coverage.Char.Defined, d.DocumentID)
	}
	assert.Equal(t, []string{"one", "two", "three"}, []string{
		rep.Documents[0].DocumentID, rep.Documents[1].DocumentID, rep.Documents[2].DocumentID,
	})
	assert.Equal(t, 3.0, promtest.ToFloat64(r.Metrics().documentsTotal.WithLabelValues("ground_truth", "cancelled")))
}

// recordingProgress captures progress events.
type recordingProgress struct {
	mu       sync.Mutex
	total    int
	updates  []int
	complete bool
	errors   map[string]error
}

func (p *recordingProgress) OnStart(total int) { p.total = total }

func (p *recordingProgress) OnProgress(current, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, current)
}

func (p *recordingProgress) OnComplete() { p.complete = true }

func (p *recordingProgress) OnError(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errors == nil {
		p.errors = make(map[string]error)
	}
	p.errors[id] = err
}

func TestRunner_ProgressAndMetrics(t *testing.T) {
	dir := t.TempDir()
	eng := &scriptedEngine{id: "fake", texts: map[string][]string{"ok": {"fine text"}, "empty": {""}}}
	progress := &recordingProgress{}
	r := newTestRunner(t, Options{Progress: progress}, eng)

	_, err := r.Run(context.Background(), Job{
		Inputs: []Input{
			writeInput(t, dir, "ok", 1, "fine text"),
			writeInput(t, dir, "empty", 1, "expected text"),
		},
		Primary: cfg("fake"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, progress.total)
	assert.Equal(t, []int{1, 2}, progress.updates)
	assert.True(t, progress.complete)
	require.Contains(t, progress.errors, "empty")
	assert.NotContains(t, progress.errors, "ok")
	assert.Contains(t, progress.errors["empty"].Error(), string(document.KindEmptyExtraction))

	m := r.Metrics()
	assert.Equal(t, 2.0, promtest.ToFloat64(m.documentsTotal.WithLabelValues("ground_truth", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.failuresTotal.WithLabelValues(string(document.KindEmptyExtraction))))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.pagesTotal.WithLabelValues("fake/gray@300", string(document.PageOK))))

	path := filepath.Join(dir, "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))
	assert.True(t, testutil.FileExists(path))
}

func TestRunner_Baseline(t *testing.T) {
	dir := t.TempDir()
	gt := "Heading line\nbody text one\nbody text two"
	lossy := &scriptedEngine{id: "lossy", texts: map[string][]string{"doc": {"body text one"}}}
	lossless := &scriptedEngine{id: "lossless", texts: map[string][]string{"doc": {gt}}}
	r := newTestRunner(t, Options{}, lossy, lossless)

	base := cfg("lossless")
	rep, err := r.Run(context.Background(), Job{
		Inputs:   []Input{writeInput(t, dir, "doc", 1, gt)},
		Primary:  cfg("lossy"),
		Baseline: &base,
	})
	require.NoError(t, err)
	assert.Equal(t, &base, rep.Baseline)
	bd := rep.Documents[0].Result.Breakdown
	require.NotNil(t, bd)
	assert.True(t, bd.Normalization.Defined, "a baseline run attributes normalization loss")
}

func TestRunner_WritesOverlays(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "overlays")
	eng := &scriptedEngine{id: "fake", texts: map[string][]string{"doc": {"first page", "second page"}}}
	r := newTestRunner(t, Options{OverlayDir: out, OverlayPDF: true}, eng)

	_, err := r.Run(context.Background(), Job{Inputs: []Input{writeInput(t, dir, "doc", 2, "first page\fsecond page")}, Primary: cfg("fake")})
	require.NoError(t, err)

	base := filepath.Join(out, "fake_gray_300")
	assert.True(t, testutil.FileExists(filepath.Join(base, "doc", "doc_page_001.png")))
	assert.True(t, testutil.FileExists(filepath.Join(base, "doc", "doc_page_002.png")))
	assert.True(t, testutil.FileExists(filepath.Join(base, "doc.pdf")))
}

func TestRunner_EngineErrorFailsPages(t *testing.T) {
	dir := t.TempDir()
	reg := extract.NewRegistry()
	reg.Register("broken", func() (extract.Engine, error) { return &failingEngine{}, nil })
	r := NewRunner(reg, DefaultOptions(), nil)

	rep, err := r.Run(context.Background(), Job{Inputs: []Input{writeInput(t, dir, "doc", 2, "a\fb")}, Primary: cfg("broken")})
	require.NoError(t, err)
	res := rep.Documents[0].Result
	assert.True(t, res.HasFailure(document.KindExtraction))
	assert.True(t, res.HasFailure(document.KindEmptyExtraction))
	assert.True(t, res.Failed(), "every page failed extraction")
	assert.Equal(t, 1, rep.Aggregate.FailedDocuments)
	assert.Equal(t, document.PageFailed, res.Pages[0].Status)
}

type failingEngine struct{}

func (failingEngine) ID() document.EngineID { return "broken" }
func (failingEngine) Capabilities() extract.Capabilities {
	return extract.Capabilities{}
}
func (failingEngine) Extract(context.Context, *normalize.Document) (*document.Document, error) {
	return nil, errors.New("engine crashed")
}
