package support

import (
	"fmt"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/cucumber/godog"
)

// RegisterReportSteps registers the steps that inspect the JSON report.
func (testCtx *TestContext) RegisterReportSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the report has (\d+) documents?$`, testCtx.theReportHasDocuments)
	sc.Step(`^"([^"]*)" has character coverage (above|below) ([\d.]+)$`, testCtx.documentCoverageBound)
	sc.Step(`^"([^"]*)" has character coverage ([\d.]+) and loss ([\d.]+)$`, testCtx.documentCoverageAndLoss)
	sc.Step(`^"([^"]*)" has undefined character coverage$`, testCtx.documentCoverageUndefined)
	sc.Step(`^page (\d+) of "([^"]*)" has character coverage (above|below) ([\d.]+)$`, testCtx.pageCoverageBound)
	sc.Step(`^the worst page of the report is page (\d+) of "([^"]*)"$`, testCtx.theWorstPageIs)
	sc.Step(`^the minimum page coverage of the report is below ([\d.]+)$`, testCtx.minimumPageCoverageBelow)
	sc.Step(`^the minimum document coverage of the report is ([\d.]+) for "([^"]*)"$`, testCtx.minimumDocumentCoverage)
	sc.Step(`^"([^"]*)" records an? "([^"]*)" failure$`, testCtx.documentRecordsFailure)
	sc.Step(`^"([^"]*)" has character agreement (above|below) ([\d.]+)$`, testCtx.characterAgreementBound)
	sc.Step(`^"([^"]*)" has region agreement (above|below) ([\d.]+)$`, testCtx.regionAgreementBound)
}

func checkBound(what string, r score.Ratio, direction string, bound float64) error {
	if !r.Defined {
		return fmt.Errorf("%s is undefined", what)
	}
	if direction == "above" && r.Value <= bound {
		return fmt.Errorf("%s is %.4f, expected above %.4f", what, r.Value, bound)
	}
	if direction == "below" && r.Value >= bound {
		return fmt.Errorf("%s is %.4f, expected below %.4f", what, r.Value, bound)
	}
	return nil
}

func (testCtx *TestContext) theReportHasDocuments(n int) error {
	rep, err := testCtx.Report()
	if err != nil {
		return err
	}
	if len(rep.Documents) != n {
		return fmt.Errorf("report has %d documents, expected %d", len(rep.Documents), n)
	}
	return nil
}

func (testCtx *TestContext) documentCoverageBound(id, direction string, bound float64) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	return checkBound(id+" character coverage", res.Coverage.Char, direction, bound)
}

func (testCtx *TestContext) documentCoverageAndLoss(id string, coverage, loss float64) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	const eps = 1e-9
	c, l := res.Coverage.Char, res.Loss.Char
	if !c.Defined || !l.Defined || c.Value < coverage-eps || c.Value > coverage+eps || l.Value < loss-eps || l.Value > loss+eps {
		return fmt.Errorf("%s has coverage %s and loss %s, expected %.4f and %.4f", id, c, l, coverage, loss)
	}
	return nil
}

func (testCtx *TestContext) documentCoverageUndefined(id string) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	if res.Coverage.Char.Defined {
		return fmt.Errorf("%s has coverage %s, expected undefined", id, res.Coverage.Char)
	}
	return nil
}

func (testCtx *TestContext) pageCoverageBound(page int, id, direction string, bound float64) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	for _, p := range res.Pages {
		if p.Index == page-1 {
			return checkBound(score.PageID(id, page)+" character coverage", p.Coverage.Char, direction, bound)
		}
	}
	return fmt.Errorf("%s has no page %d in the report", id, page)
}

func (testCtx *TestContext) theWorstPageIs(page int, id string) error {
	rep, err := testCtx.Report()
	if err != nil {
		return err
	}
	if len(rep.Aggregate.WorstPages) == 0 {
		return fmt.Errorf("report lists no worst pages")
	}
	if got, want := rep.Aggregate.WorstPages[0].ID(), score.PageID(id, page); got != want {
		return fmt.Errorf("worst page is %s, expected %s", got, want)
	}
	return nil
}

func (testCtx *TestContext) minimumPageCoverageBelow(bound float64) error {
	rep, err := testCtx.Report()
	if err != nil {
		return err
	}
	d := rep.Aggregate.PageCoverage
	if d.Count == 0 || d.Min >= bound {
		return fmt.Errorf("minimum page coverage is %.4f over %d pages, expected below %.4f", d.Min, d.Count, bound)
	}
	return nil
}

func (testCtx *TestContext) minimumDocumentCoverage(value float64, id string) error {
	rep, err := testCtx.Report()
	if err != nil {
		return err
	}
	d := rep.Aggregate.CharCoverage
	if d.Count == 0 || d.Min != value || d.MinID != id {
		return fmt.Errorf("minimum document coverage is %.4f (%s), expected %.4f (%s)", d.Min, d.MinID, value, id)
	}
	return nil
}

func (testCtx *TestContext) documentRecordsFailure(id, kind string) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	if !res.HasFailure(document.FailureKind(kind)) {
		return fmt.Errorf("%s records failures %v, expected %s", id, res.Failures, kind)
	}
	return nil
}

func (testCtx *TestContext) characterAgreementBound(id, direction string, bound float64) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	if res.Agreement == nil {
		return fmt.Errorf("%s has no agreement", id)
	}
	return checkBound(id+" character agreement", res.Agreement.Char, direction, bound)
}

func (testCtx *TestContext) regionAgreementBound(id, direction string, bound float64) error {
	res, err := testCtx.Result(id)
	if err != nil {
		return err
	}
	if res.Agreement == nil {
		return fmt.Errorf("%s has no agreement", id)
	}
	return checkBound(id+" region agreement", res.Agreement.Region, direction, bound)
}
