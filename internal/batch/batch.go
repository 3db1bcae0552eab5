// Package batch turns command-line arguments into evaluation inputs: it
// discovers documents and pairs each one with its ground-truth transcript.
package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/groundtruth"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
)

// Config holds discovery and pairing settings.
type Config struct {
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	// GroundTruthDir holds <id>.<ext> transcripts. When empty, transcripts are
	// looked up next to each document.
	GroundTruthDir string
	// ContinueOnError keeps documents without a transcript in the run, where
	// they are reported as alignment failures. Otherwise pairing fails.
	ContinueOnError bool
}

// Pairing is the result of matching documents with transcripts.
type Pairing struct {
	Inputs []eval.Input
	// Missing lists the documents without a transcript.
	Missing []string
}

// Pair looks up the transcript of every document.
func Pair(docs []string, groundTruthDir string) Pairing {
	var p Pairing
	for _, doc := range docs {
		dir := groundTruthDir
		if dir == "" {
			dir = filepath.Dir(doc)
		}
		in := eval.Input{Path: doc}
		gt, err := groundtruth.Find(dir, normalize.DocumentID(doc))
		if err == nil {
			in.GroundTruthPath = gt
		} else {
			p.Missing = append(p.Missing, doc)
		}
		p.Inputs = append(p.Inputs, in)
	}
	return p
}

// Inputs discovers documents from args. When pairGroundTruth is set every
// document is paired with its transcript.
func Inputs(args []string, cfg Config, pairGroundTruth bool) (Pairing, error) {
	docs, err := DiscoverDocuments(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return Pairing{}, fmt.Errorf("failed to discover documents: %w", err)
	}
	if len(docs) == 0 {
		return Pairing{}, errors.New("no input documents found")
	}

	if !pairGroundTruth {
		p := Pairing{Inputs: make([]eval.Input, len(docs))}
		for i, d := range docs {
			p.Inputs[i] = eval.Input{Path: d}
		}
		return p, nil
	}

	p := Pair(docs, cfg.GroundTruthDir)
	if len(p.Missing) > 0 && !cfg.ContinueOnError {
		return p, document.ConfigurationInvalid("no ground truth for %d document(s): %s",
			len(p.Missing), strings.Join(p.Missing, ", "))
	}
	return p, nil
}
