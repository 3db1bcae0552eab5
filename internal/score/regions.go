package score

import (
	"sort"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Agreement returns matched / (source + reference - matched).
func (rc RegionCounts) Agreement() Ratio {
	return Fraction(rc.Matched, rc.Source+rc.Reference-rc.Matched)
}

// MatchRegions pairs regions of two runs page by page. Pages beyond the
// shorter run contribute their regions unmatched.
func MatchRegions(a, b *document.Document, threshold float64) RegionCounts {
	var rc RegionCounts
	for i := 0; i < max(len(a.Pages), len(b.Pages)); i++ {
		var pa, pb document.Page
		if i < len(a.Pages) {
			pa = a.Pages[i]
		}
		if i < len(b.Pages) {
			pb = b.Pages[i]
		}
		prc := matchPage(pa, pb, threshold)
		rc.Source += prc.Source
		rc.Reference += prc.Reference
		rc.Matched += prc.Matched
	}
	return rc
}

type candidate struct {
	i, j int
	iou  float64
}

// matchPage greedily pairs regions by descending IoU. Boxes are compared in
// page-relative coordinates so runs at different resolutions line up.
func matchPage(a, b document.Page, threshold float64) RegionCounts {
	rc := RegionCounts{Source: len(a.Regions), Reference: len(b.Regions)}
	if rc.Source == 0 || rc.Reference == 0 {
		return rc
	}
	if threshold <= 0 {
		threshold = DefaultRegionMatchIoU
	}

	ra := relativeBoxes(a)
	rb := relativeBoxes(b)
	var cands []candidate
	for i, x := range ra {
		for j, y := range rb {
			if v := x.IoU(y); v >= threshold {
				cands = append(cands, candidate{i: i, j: j, iou: v})
			}
		}
	}
	sort.SliceStable(cands, func(p, q int) bool { return cands[p].iou > cands[q].iou })

	usedA := make([]bool, len(ra))
	usedB := make([]bool, len(rb))
	for _, c := range cands {
		if usedA[c.i] || usedB[c.j] {
			continue
		}
		usedA[c.i], usedB[c.j] = true, true
		rc.Matched++
	}
	return rc
}

func relativeBoxes(p document.Page) []document.BBox {
	sx, sy := 1.0, 1.0
	if p.Width > 0 && p.Height > 0 {
		sx, sy = 1/p.Width, 1/p.Height
	}
	out := make([]document.BBox, len(p.Regions))
	for i, r := range p.Regions {
		out[i] = r.BBox.Scale(sx, sy)
	}
	return out
}

// MatchedRegions reports, for each region of page a, whether a region of page b
// overlaps it by at least threshold of its own area.
func MatchedRegions(a, b document.Page, threshold float64) []bool {
	ra := relativeBoxes(a)
	rb := relativeBoxes(b)
	out := make([]bool, len(ra))
	for i, x := range ra {
		for _, y := range rb {
			if x.Coverage(y) >= threshold {
				out[i] = true
				break
			}
		}
	}
	return out
}
