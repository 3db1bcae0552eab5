package eval

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "eval ").WithWidth(10)

	p.OnStart(4)
	p.OnProgress(4, 4)
	p.OnError("scan-07", errors.New("normalization_failure: no pages"))
	p.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "eval 0/4 documents")
	assert.Contains(t, out, "[██████████] 4/4 (100.0%)")
	assert.Contains(t, out, "eval scan-07: normalization_failure: no pages")
	assert.Contains(t, out, "Completed in")
}

func TestConsoleProgressCallback_Throttles(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "")
	p.OnStart(100)
	p.OnProgress(1, 100)
	p.OnProgress(2, 100)
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"), "updates inside the interval are dropped")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewLogProgressCallback(logger, slog.LevelInfo, 2)

	p.OnStart(3)
	for i := 1; i <= 3; i++ {
		p.OnProgress(i, 3)
	}
	p.OnError("doc", errors.New("boom"))
	p.OnComplete()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "evaluation progress"), "logs at the interval and on the last document")
	assert.Contains(t, out, "current=2")
	assert.Contains(t, out, "current=3")
	assert.Contains(t, out, "document failure recorded")
	assert.Contains(t, out, "evaluation completed")
}

func TestNoOpProgressCallback(t *testing.T) {
	var p ProgressCallback = NoOpProgressCallback{}
	assert.NotPanics(t, func() {
		p.OnStart(1)
		p.OnProgress(1, 1)
		p.OnError("x", errors.New("y"))
		p.OnComplete()
	})
}
