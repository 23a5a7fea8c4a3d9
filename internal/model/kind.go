package model

import (
	"fmt"
	"sync"

	"github.com/stemsi/physqgen-backend/internal/kinematics"
)

// KinematicsKind is the tag for constant-acceleration motion questions.
const KinematicsKind = "KinematicsQuestion"

// QuestionKind describes one family of generated questions: the quantity
// names it may use, how its ranges are validated and how a missing quantity
// is derived from the known ones.
type QuestionKind struct {
	Name        string
	Quantities  []string
	RangeChecks map[string]RangeCheck
	// PairChecks are keyed by two quantity names and only run when both are configured.
	PairChecks []NamedPairCheck
	// Known is how many quantities a recipe samples; the answer is derived
	// from them and every other quantity stays derivable.
	Known   int
	Resolve func(target string, known map[string]float64) (float64, error)
	// Labels gives the units and display name used for a derived answer
	// when the recipe does not set them.
	Labels map[string]QuantityLabel
}

// QuantityLabel is how a quantity is rendered next to its value.
type QuantityLabel struct {
	Units       string
	DisplayName string
}

// NamedPairCheck binds a PairCheck to the two quantities it compares.
type NamedPairCheck struct {
	First  string
	Second string
	Check  PairCheck
}

// Has reports whether name is one of the kind's quantities.
func (k QuestionKind) Has(name string) bool {
	for _, q := range k.Quantities {
		if q == name {
			return true
		}
	}
	return false
}

var (
	kindsMu sync.RWMutex
	kinds   = map[string]QuestionKind{}
)

// RegisterKind makes a question kind available by its tag. It panics on a
// duplicate or incomplete registration, as database/sql.Register does.
func RegisterKind(kind QuestionKind) {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	if kind.Name == "" || kind.Resolve == nil {
		panic("model: RegisterKind with incomplete kind")
	}
	if _, dup := kinds[kind.Name]; dup {
		panic("model: RegisterKind called twice for " + kind.Name)
	}
	kinds[kind.Name] = kind
}

// LookupKind returns the registered kind for a tag.
func LookupKind(name string) (QuestionKind, error) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	kind, ok := kinds[name]
	if !ok {
		return QuestionKind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return kind, nil
}

func init() {
	quantities := make([]string, 0, len(kinematics.All))
	for _, q := range kinematics.All {
		quantities = append(quantities, q.String())
	}

	RegisterKind(QuestionKind{
		Name:       KinematicsKind,
		Quantities: quantities,
		RangeChecks: map[string]RangeCheck{
			// both appear as divisors in at least one identity
			kinematics.Time.String():         NonZero,
			kinematics.Acceleration.String(): NonZero,
		},
		PairChecks: []NamedPairCheck{
			{First: kinematics.InitialVelocity.String(), Second: kinematics.FinalVelocity.String(), Check: NonOverlapping},
		},
		Known:   3,
		Resolve: resolveKinematics,
		Labels: map[string]QuantityLabel{
			kinematics.Displacement.String():    {Units: "m", DisplayName: "d"},
			kinematics.InitialVelocity.String(): {Units: "m/s", DisplayName: "v1"},
			kinematics.FinalVelocity.String():   {Units: "m/s", DisplayName: "v2"},
			kinematics.Time.String():            {Units: "s", DisplayName: "t"},
			kinematics.Acceleration.String():    {Units: "m/s^2", DisplayName: "a"},
		},
	})
}

func resolveKinematics(target string, known map[string]float64) (float64, error) {
	q, err := kinematics.Parse(target)
	if err != nil {
		return 0, err
	}

	values := make(kinematics.Values, len(known))
	for name, value := range known {
		k, err := kinematics.Parse(name)
		if err != nil {
			return 0, err
		}
		values[k] = value
	}

	return kinematics.Resolve(q, values)
}
