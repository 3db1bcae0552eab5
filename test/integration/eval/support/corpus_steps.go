package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/ocreval/internal/corpus"
	"github.com/cucumber/godog"
)

// RegisterCorpusSteps registers the steps that build documents and transcripts.
func (testCtx *TestContext) RegisterCorpusSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (\d+)-page document "([^"]*)" with body text$`, testCtx.aDocumentWithBodyText)
	sc.Step(`^page (\d+) of "([^"]*)" is a table of contents with (\d+) entries$`, testCtx.pageIsATableOfContents)
	sc.Step(`^the ground-truth transcript of "([^"]*)" matches the document$`, testCtx.transcriptMatchesDocument)
	sc.Step(`^the ground-truth transcript of "([^"]*)" is empty$`, testCtx.transcriptIsEmpty)
	sc.Step(`^a line-level sidecar for "([^"]*)" that omits page (\d+)$`, testCtx.lineSidecarOmittingPage)
	sc.Step(`^a line-level sidecar for "([^"]*)"$`, testCtx.lineSidecar)
	sc.Step(`^a block-level sidecar for "([^"]*)"$`, testCtx.blockSidecar)
	sc.Step(`^an hOCR file for "([^"]*)"$`, testCtx.anHOCRFile)
}

func (testCtx *TestContext) document(id string) (*corpus.Document, error) {
	d, ok := testCtx.Documents[id]
	if !ok {
		return nil, fmt.Errorf("unknown document %q", id)
	}
	return d, nil
}

func (testCtx *TestContext) aDocumentWithBodyText(pages int, id string) error {
	d := corpus.NewDocument(id, pages, corpus.DefaultLinesPerPage)
	testCtx.Documents[id] = d
	_, err := d.WritePDF(testCtx.DocsDir)
	return err
}

func (testCtx *TestContext) pageIsATableOfContents(page int, id string, entries int) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	if err := d.SetPage(page, corpus.TableOfContents(entries)); err != nil {
		return err
	}
	_, err = d.WritePDF(testCtx.DocsDir)
	return err
}

func (testCtx *TestContext) transcriptMatchesDocument(id string) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	_, err = d.WriteTranscript(testCtx.GTDir)
	return err
}

func (testCtx *TestContext) transcriptIsEmpty(id string) error {
	return os.WriteFile(filepath.Join(testCtx.GTDir, id+".txt"), nil, 0o600)
}

func (testCtx *TestContext) lineSidecarOmittingPage(id string, omit int) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	_, err = d.WriteSidecar(testCtx.DocsDir, corpus.SidecarStyle{Omit: []int{omit}})
	return err
}

func (testCtx *TestContext) lineSidecar(id string) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	_, err = d.WriteSidecar(testCtx.DocsDir, corpus.SidecarStyle{})
	return err
}

func (testCtx *TestContext) blockSidecar(id string) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	_, err = d.WriteSidecar(testCtx.DocsDir, corpus.SidecarStyle{Block: true})
	return err
}

func (testCtx *TestContext) anHOCRFile(id string) error {
	d, err := testCtx.document(id)
	if err != nil {
		return err
	}
	_, err = d.WriteHOCR(testCtx.DocsDir)
	return err
}
