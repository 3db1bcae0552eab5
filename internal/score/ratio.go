package score

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Ratio is a fraction that may be undefined. Undefined ratios encode as JSON null.
type Ratio struct {
	Value   float64
	Defined bool
}

// Defined returns a defined ratio.
func Defined(v float64) Ratio { return Ratio{Value: v, Defined: true} }

// Undefined returns an undefined ratio.
func Undefined() Ratio { return Ratio{} }

// Fraction returns num/den, undefined when den is zero.
func Fraction(num, den int) Ratio {
	if den == 0 {
		return Undefined()
	}
	return Defined(float64(num) / float64(den))
}

// Complement returns 1-r, preserving undefinedness.
func (r Ratio) Complement() Ratio {
	if !r.Defined {
		return r
	}
	return Defined(1 - r.Value)
}

// Sub returns r-o; undefined if either side is.
func (r Ratio) Sub(o Ratio) Ratio {
	if !r.Defined || !o.Defined {
		return Undefined()
	}
	return Defined(r.Value - o.Value)
}

// Or returns r's value, or def when r is undefined.
func (r Ratio) Or(def float64) float64 {
	if !r.Defined {
		return def
	}
	return r.Value
}

func (r Ratio) String() string {
	if !r.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(r.Value*100, 'f', 2, 64) + "%"
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined || math.IsNaN(r.Value) {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Defined(v)
	return nil
}

// MarshalYAML encodes undefined ratios as null.
func (r Ratio) MarshalYAML() (interface{}, error) {
	if !r.Defined {
		return nil, nil
	}
	return r.Value, nil
}
