package document

import (
	"errors"
	"fmt"
	"math"
)

// BBox is an axis-aligned bounding box in page-local coordinates with the
// origin at the top-left corner of the page.
type BBox struct {
	X0 float64 `json:"x0" yaml:"x0"`
	Y0 float64 `json:"y0" yaml:"y0"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
}

// NewBBox constructs a BBox from two corners, ensuring ordering.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Area returns the box area, zero for degenerate boxes.
func (b BBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Empty reports whether the box encloses no area.
func (b BBox) Empty() bool { return b.Area() == 0 }

// Intersect returns the overlapping box of b and o (possibly empty).
func (b BBox) Intersect(o BBox) BBox {
	r := BBox{
		X0: math.Max(b.X0, o.X0),
		Y0: math.Max(b.Y0, o.Y0),
		X1: math.Min(b.X1, o.X1),
		Y1: math.Min(b.Y1, o.Y1),
	}
	if r.X1 < r.X0 {
		r.X1 = r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y1 = r.Y0
	}
	return r
}

// Union returns the smallest box enclosing both b and o.
func (b BBox) Union(o BBox) BBox {
	if b.Empty() && b == (BBox{}) {
		return o
	}
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// IoU returns the intersection over union of b and o.
func (b BBox) IoU(o BBox) float64 {
	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Coverage returns the fraction of b's area covered by o.
func (b BBox) Coverage(o BBox) float64 {
	area := b.Area()
	if area == 0 {
		return 0
	}
	return b.Intersect(o).Area() / area
}

// Scale multiplies all coordinates by sx, sy.
func (b BBox) Scale(sx, sy float64) BBox {
	return BBox{X0: b.X0 * sx, Y0: b.Y0 * sy, X1: b.X1 * sx, Y1: b.Y1 * sy}
}

// Clamp restricts the box to [0,w]x[0,h].
func (b BBox) Clamp(w, h float64) BBox {
	c := func(v, hi float64) float64 { return math.Min(math.Max(v, 0), hi) }
	return BBox{X0: c(b.X0, w), Y0: c(b.Y0, h), X1: c(b.X1, w), Y1: c(b.Y1, h)}
}

// Validate checks the page-local invariant: coordinates are non-negative and ordered.
// When w and h are positive the box must also lie within the page.
func (b BBox) Validate(w, h float64) error {
	if b.X0 < 0 || b.Y0 < 0 || b.X1 < 0 || b.Y1 < 0 {
		return errors.New("negative coordinates")
	}
	if b.X1 < b.X0 || b.Y1 < b.Y0 {
		return errors.New("unordered coordinates")
	}
	const eps = 0.5
	if w > 0 && b.X1 > w+eps {
		return fmt.Errorf("x1 %.1f exceeds page width %.1f", b.X1, w)
	}
	if h > 0 && b.Y1 > h+eps {
		return fmt.Errorf("y1 %.1f exceeds page height %.1f", b.Y1, h)
	}
	return nil
}
