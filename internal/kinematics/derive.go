package kinematics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownQuantity = errors.New("unknown kinematics quantity")
	ErrUnresolvable    = errors.New("no derivation branch applies")
)

// branch is one closed-form identity producing a target from three inputs.
// eval returns ok=false when the identity is undefined for the given inputs.
type branch struct {
	inputs [3]Quantity
	eval   func(v Values) (float64, bool)
}

// quotient divides n by d, refusing a zero divisor.
func quotient(n, d float64) (float64, bool) {
	if d == 0 {
		return 0, false
	}
	return n / d, true
}

// root takes the non-negative square root, refusing a negative radicand.
func root(x float64) (float64, bool) {
	if x < 0 {
		return 0, false
	}
	return math.Sqrt(x), true
}

const (
	d  = Displacement
	v1 = InitialVelocity
	v2 = FinalVelocity
	t  = Time
	a  = Acceleration
)

// derivations is the dispatch table. Branches for a target are tried in order;
// the first whose inputs are present and whose result is finite wins.
var derivations = map[Quantity][]branch{
	Displacement: {
		{[3]Quantity{v1, t, a}, func(v Values) (float64, bool) {
			return v[v1]*v[t] + 0.5*v[a]*v[t]*v[t], true
		}},
		{[3]Quantity{v2, t, a}, func(v Values) (float64, bool) {
			return v[v2]*v[t] - 0.5*v[a]*v[t]*v[t], true
		}},
		{[3]Quantity{v1, v2, a}, func(v Values) (float64, bool) {
			return quotient(v[v2]*v[v2]-v[v1]*v[v1], 2*v[a])
		}},
		{[3]Quantity{v1, v2, t}, func(v Values) (float64, bool) {
			return (v[v1] + v[v2]) / 2 * v[t], true
		}},
	},
	InitialVelocity: {
		{[3]Quantity{v2, a, t}, func(v Values) (float64, bool) {
			return v[v2] - v[a]*v[t], true
		}},
		{[3]Quantity{d, t, a}, func(v Values) (float64, bool) {
			avg, ok := quotient(v[d], v[t])
			return avg - 0.5*v[a]*v[t], ok
		}},
		{[3]Quantity{v2, a, d}, func(v Values) (float64, bool) {
			return root(v[v2]*v[v2] - 2*v[a]*v[d])
		}},
		{[3]Quantity{d, t, v2}, func(v Values) (float64, bool) {
			twice, ok := quotient(2*v[d], v[t])
			return twice - v[v2], ok
		}},
	},
	FinalVelocity: {
		{[3]Quantity{v1, a, t}, func(v Values) (float64, bool) {
			return v[v1] + v[a]*v[t], true
		}},
		{[3]Quantity{d, t, a}, func(v Values) (float64, bool) {
			avg, ok := quotient(v[d], v[t])
			return avg + 0.5*v[a]*v[t], ok
		}},
		{[3]Quantity{v1, a, d}, func(v Values) (float64, bool) {
			return root(v[v1]*v[v1] + 2*v[a]*v[d])
		}},
		{[3]Quantity{d, t, v1}, func(v Values) (float64, bool) {
			twice, ok := quotient(2*v[d], v[t])
			return twice - v[v1], ok
		}},
	},
	Time: {
		{[3]Quantity{v1, v2, a}, func(v Values) (float64, bool) {
			// equal velocities give 0/0 even with a non-zero acceleration
			if v[v1] == v[v2] {
				return 0, false
			}
			return quotient(v[v2]-v[v1], v[a])
		}},
		// single root: a negative time for motion that reverses is returned as is
		{[3]Quantity{d, v2, a}, func(v Values) (float64, bool) {
			r, ok := root(v[v2]*v[v2] - 2*v[a]*v[d])
			if !ok {
				return 0, false
			}
			return quotient(v[v2]-r, v[a])
		}},
		{[3]Quantity{d, v1, a}, func(v Values) (float64, bool) {
			r, ok := root(v[v1]*v[v1] + 2*v[a]*v[d])
			if !ok {
				return 0, false
			}
			return quotient(r-v[v1], v[a])
		}},
		{[3]Quantity{d, v1, v2}, func(v Values) (float64, bool) {
			return quotient(2*v[d], v[v1]+v[v2])
		}},
	},
	Acceleration: {
		{[3]Quantity{v1, v2, t}, func(v Values) (float64, bool) {
			return quotient(v[v2]-v[v1], v[t])
		}},
		{[3]Quantity{d, v2, t}, func(v Values) (float64, bool) {
			return quotient(2*(v[v2]*v[t]-v[d]), v[t]*v[t])
		}},
		{[3]Quantity{d, v1, t}, func(v Values) (float64, bool) {
			return quotient(2*(v[d]-v[v1]*v[t]), v[t]*v[t])
		}},
		{[3]Quantity{d, v1, v2}, func(v Values) (float64, bool) {
			return quotient(v[v2]*v[v2]-v[v1]*v[v1], 2*v[d])
		}},
	},
}

// Resolve returns the value of target, either as stored in known or derived
// from the other quantities. It never mutates known.
func Resolve(target Quantity, known Values) (float64, error) {
	if value, ok := known[target]; ok {
		return value, nil
	}
	return Derive(target, known)
}

// Derive computes target from known with the first applicable identity,
// ignoring any value already stored for target.
func Derive(target Quantity, known Values) (float64, error) {
	branches, ok := derivations[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuantity, target)
	}

	for _, b := range branches {
		if !known.Has(b.inputs[:]...) {
			continue
		}
		value, ok := b.eval(known)
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		return value, nil
	}

	return 0, fmt.Errorf("%w: %s from %v", ErrUnresolvable, target, known.names())
}

// DeriveFrom computes target using only the given inputs, with the same
// branch order as Derive. It is used to cross-check a full assignment.
func DeriveFrom(target Quantity, known Values, inputs ...Quantity) (float64, error) {
	subset := make(Values, len(inputs))
	for _, q := range inputs {
		value, ok := known[q]
		if !ok {
			return 0, fmt.Errorf("%w: %s missing", ErrUnresolvable, q)
		}
		subset[q] = value
	}
	return Derive(target, subset)
}

func (v Values) names() []string {
	names := make([]string, 0, len(v))
	for _, q := range All {
		if _, ok := v[q]; ok {
			names = append(names, q.String())
		}
	}
	return names
}
