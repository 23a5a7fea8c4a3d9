package model

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Variable is a single resolved physical quantity belonging to a question.
type Variable struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"variable_name"`
	Value         float64   `json:"value"`
	Units         string    `json:"units"`
	DisplayName   string    `json:"display_name"`
	DecimalPlaces int       `json:"decimal_places"`
}

// String renders the variable the way it is shown to a student, e.g. "t = 2.50s".
func (v Variable) String() string {
	return fmt.Sprintf("%s = %.*f%s", v.DisplayName, v.DecimalPlaces, v.Value, v.Units)
}

// DefaultDecimalPlaces is used when a recipe does not set a precision.
const DefaultDecimalPlaces = 3

// Range is a pair of sampling bounds, in either order.
type Range [2]float64

// Bounds returns the range as (low, high).
func (r Range) Bounds() (float64, float64) {
	return math.Min(r[0], r[1]), math.Max(r[0], r[1])
}

// Finite reports whether both bounds are real numbers.
func (r Range) Finite() bool {
	for _, b := range r {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return false
		}
	}
	return true
}

// RangeCheck validates a single configured range.
type RangeCheck func(Range) bool

// PairCheck validates two configured ranges against each other.
type PairCheck func(a, b Range) bool

// NonZero rejects a range that touches or straddles zero.
// Signed zero compares equal to zero, so -0 is rejected too.
func NonZero(r Range) bool {
	if r[0] == 0 || r[1] == 0 {
		return false
	}
	return r[0]*r[1] > 0
}

// NonOverlapping reports whether the two closed intervals are disjoint.
func NonOverlapping(a, b Range) bool {
	aLow, aHigh := a.Bounds()
	bLow, bHigh := b.Bounds()
	return aHigh < bLow || bHigh < aLow
}

// VariableConfig is the recipe for sampling one Variable.
type VariableConfig struct {
	Name          string `json:"name"`
	Range         Range  `json:"range"`
	Units         string `json:"units"`
	DisplayName   string `json:"display_name"`
	DecimalPlaces int    `json:"decimal_places"`
}

// Float64Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// Sample draws a value uniformly from the configured range after running
// the given checks against the bounds.
func (c VariableConfig) Sample(rng Float64Source, checks ...RangeCheck) (Variable, error) {
	if !c.Range.Finite() {
		return Variable{}, fmt.Errorf("%w: %s has a non-finite range %v", ErrConfiguration, c.Name, c.Range)
	}
	for _, check := range checks {
		if !check(c.Range) {
			return Variable{}, fmt.Errorf("%w: range %v for %s failed validation", ErrConfiguration, c.Range, c.Name)
		}
	}

	low, high := c.Range.Bounds()
	return Variable{
		ID:            uuid.New(),
		Name:          c.Name,
		Value:         low + rng.Float64()*(high-low),
		Units:         c.Units,
		DisplayName:   c.DisplayName,
		DecimalPlaces: c.DecimalPlaces,
	}, nil
}
