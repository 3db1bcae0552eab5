package document

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// genBBox generates a non-degenerate box inside a 1000x1000 page.
func genBBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 900),
		gen.Float64Range(0, 900),
		gen.Float64Range(1, 100),
		gen.Float64Range(1, 100),
	).Map(func(vals []interface{}) BBox {
		x, ok := vals[0].(float64)
		if !ok {
			panic("expected float64")
		}
		y, ok := vals[1].(float64)
		if !ok {
			panic("expected float64")
		}
		w, ok := vals[2].(float64)
		if !ok {
			panic("expected float64")
		}
		h, ok := vals[3].(float64)
		if !ok {
			panic("expected float64")
		}
		return NewBBox(x, y, x+w, y+h)
	})
}

func TestBBoxIoU_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("IoU is symmetric", prop.ForAll(
		func(a, b BBox) bool {
			return math.Abs(a.IoU(b)-b.IoU(a)) < 1e-9
		},
		genBBox(), genBBox(),
	))

	properties.Property("IoU is within [0,1]", prop.ForAll(
		func(a, b BBox) bool {
			v := a.IoU(b)
			return v >= 0 && v <= 1+1e-9
		},
		genBBox(), genBBox(),
	))

	properties.Property("IoU of a box with itself is 1", prop.ForAll(
		func(a BBox) bool {
			return math.Abs(a.IoU(a)-1) < 1e-9
		},
		genBBox(),
	))

	properties.Property("generated boxes validate against the page", prop.ForAll(
		func(a BBox) bool {
			return a.Validate(1000, 1000) == nil
		},
		genBBox(),
	))

	properties.TestingRun(t)
}

func TestBBoxGeometry(t *testing.T) {
	a := NewBBox(10, 10, 0, 0)
	assert.Equal(t, BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, a)
	assert.InDelta(t, 100, a.Area(), 1e-9)

	b := BBox{X0: 5, Y0: 5, X1: 15, Y1: 15}
	assert.Equal(t, BBox{X0: 5, Y0: 5, X1: 10, Y1: 10}, a.Intersect(b))
	assert.InDelta(t, 25.0/175.0, a.IoU(b), 1e-9)
	assert.InDelta(t, 0.25, a.Coverage(b), 1e-9)
	assert.Equal(t, BBox{X0: 0, Y0: 0, X1: 15, Y1: 15}, a.Union(b))
	assert.Equal(t, b, BBox{}.Union(b))

	far := BBox{X0: 50, Y0: 50, X1: 60, Y1: 60}
	assert.Zero(t, a.IoU(far))
	assert.True(t, a.Intersect(far).Empty())

	assert.Equal(t, BBox{X0: 0, Y0: 0, X1: 20, Y1: 5}, a.Scale(2, 0.5))
	assert.Equal(t, BBox{X0: 0, Y0: 5, X1: 8, Y1: 8}, BBox{X0: -3, Y0: 5, X1: 12, Y1: 9}.Clamp(8, 8))
}

func TestBBoxValidate(t *testing.T) {
	assert.NoError(t, BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}.Validate(10, 10))
	assert.NoError(t, BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}.Validate(0, 0))
	assert.Error(t, BBox{X0: -1, Y0: 0, X1: 10, Y1: 10}.Validate(10, 10))
	assert.Error(t, BBox{X0: 5, Y0: 0, X1: 1, Y1: 10}.Validate(10, 10))
	assert.Error(t, BBox{X0: 0, Y0: 0, X1: 20, Y1: 10}.Validate(10, 10))
	assert.Error(t, BBox{X0: 0, Y0: 0, X1: 10, Y1: 20}.Validate(10, 10))
}
