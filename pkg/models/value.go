package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a scalar that is either defined or undefined. Undefined means
// "not computable from the available data" and is distinct from an
// infinite ratio, which is a defined value.
type Value struct {
	v  float64
	ok bool
}

// Of wraps v. NaN maps to an undefined Value.
func Of(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Undefined returns the undefined Value.
func Undefined() Value { return Value{} }

// Infinite returns the positive infinite sentinel.
func Infinite() Value { return Value{v: math.Inf(1), ok: true} }

// Get returns the underlying float and whether it is defined.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// Defined reports whether x holds a number.
func (x Value) Defined() bool { return x.ok }

// IsInf reports whether x is the infinite sentinel.
func (x Value) IsInf() bool { return x.ok && math.IsInf(x.v, 0) }

// Or returns the value or def when undefined.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

// Float returns the value or NaN when undefined.
func (x Value) Float() float64 { return x.Or(math.NaN()) }

// String formats x for display.
func (x Value) String() string {
	switch {
	case !x.ok:
		return "n/a"
	case math.IsInf(x.v, 1):
		return "+Inf"
	case math.IsInf(x.v, -1):
		return "-Inf"
	default:
		return fmt.Sprintf("%.4f", x.v)
	}
}

// MarshalJSON encodes undefined as null and infinities as strings.
func (x Value) MarshalJSON() ([]byte, error) {
	switch {
	case !x.ok:
		return []byte("null"), nil
	case math.IsInf(x.v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(x.v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON reverses MarshalJSON.
func (x *Value) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*x = Value{}
		return nil
	case `"+Inf"`:
		*x = Of(math.Inf(1))
		return nil
	case `"-Inf"`:
		*x = Of(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*x = Of(f)
	return nil
}

// Line is a derived series aligned 1:1 with its source Series.
// NaN marks indices where the indicator is undefined.
type Line []float64

// NewLine returns a Line of length n with every entry undefined.
func NewLine(n int) Line {
	l := make(Line, n)
	for i := range l {
		l[i] = math.NaN()
	}
	return l
}

// At returns the entry at i, undefined when out of range.
func (l Line) At(i int) Value {
	if i < 0 || i >= len(l) {
		return Undefined()
	}
	return Of(l[i])
}

// Last returns the most recent entry.
func (l Line) Last() Value { return l.At(len(l) - 1) }

// FromEnd returns the entry k positions before the last (k=0 is the last).
func (l Line) FromEnd(k int) Value { return l.At(len(l) - 1 - k) }

// DefinedCount returns how many entries are defined.
func (l Line) DefinedCount() int {
	n := 0
	for _, v := range l {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
