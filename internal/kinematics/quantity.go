package kinematics

import "fmt"

// Quantity is one of the five constant-acceleration motion quantities.
type Quantity int

const (
	Displacement Quantity = iota
	InitialVelocity
	FinalVelocity
	Time
	Acceleration
)

// All lists every quantity in canonical order.
var All = []Quantity{Displacement, InitialVelocity, FinalVelocity, Time, Acceleration}

var quantityNames = map[Quantity]string{
	Displacement:    "displacement",
	InitialVelocity: "initial_velocity",
	FinalVelocity:   "final_velocity",
	Time:            "time",
	Acceleration:    "acceleration",
}

// String returns the storage/config name of the quantity.
func (q Quantity) String() string {
	if name, ok := quantityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("quantity(%d)", int(q))
}

// Valid reports whether q is one of the five known quantities.
func (q Quantity) Valid() bool {
	_, ok := quantityNames[q]
	return ok
}

// Parse maps a config/storage name such as "final_velocity" to its Quantity.
func Parse(name string) (Quantity, error) {
	for q, n := range quantityNames {
		if n == name {
			return q, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuantity, name)
}

// Values is a partial assignment of quantities to their numeric values.
type Values map[Quantity]float64

// Has reports whether every given quantity is present.
func (v Values) Has(qs ...Quantity) bool {
	for _, q := range qs {
		if _, ok := v[q]; !ok {
			return false
		}
	}
	return true
}
