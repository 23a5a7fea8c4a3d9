package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestSampleStaysWithinBoundsInEitherOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, r := range []Range{{1, 5}, {5, 1}, {-3, -9}, {-2, 2}, {4, 4}} {
		cfg := VariableConfig{Name: "displacement", Range: r}
		low, high := r.Bounds()

		for range 200 {
			v, err := cfg.Sample(rng)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v.Value, low)
			assert.LessOrEqual(t, v.Value, high)
		}
	}
}

func TestSampleUsesLowBoundAsBase(t *testing.T) {
	cfg := VariableConfig{Name: "time", Range: Range{10, 2}}

	v, err := cfg.Sample(fixedSource(0))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Value)

	v, err = cfg.Sample(fixedSource(0.5))
	require.NoError(t, err)
	assert.Equal(t, 6.0, v.Value)
}

func TestSampleRejectsFailingCheck(t *testing.T) {
	cfg := VariableConfig{Name: "time", Range: Range{-1, 3}}
	_, err := cfg.Sample(fixedSource(0.5), NonZero)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSampleRejectsNonFiniteRange(t *testing.T) {
	cfg := VariableConfig{Name: "time", Range: Range{math.NaN(), 3}}
	_, err := cfg.Sample(fixedSource(0.5))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNonZero(t *testing.T) {
	cases := []struct {
		name  string
		r     Range
		valid bool
	}{
		{"positive", Range{1, 5}, true},
		{"negative", Range{-5, -1}, true},
		{"reversed", Range{5, 1}, true},
		{"straddles", Range{-1, 1}, false},
		{"zero low", Range{0, 3}, false},
		{"zero high", Range{-3, 0}, false},
		{"negative zero", Range{math.Copysign(0, -1), 3}, false},
		{"both zero", Range{0, 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, NonZero(tc.r))
		})
	}
}

func TestNonOverlapping(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Range
		disjoint bool
	}{
		{"apart", Range{1, 2}, Range{3, 4}, true},
		{"apart reversed", Range{4, 3}, Range{2, 1}, true},
		{"touching", Range{1, 2}, Range{2, 3}, false},
		{"overlapping", Range{1, 5}, Range{4, 8}, false},
		{"contained", Range{1, 10}, Range{3, 4}, false},
		{"reversed overlap", Range{5, 1}, Range{8, 4}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.disjoint, NonOverlapping(tc.a, tc.b))
			assert.Equal(t, tc.disjoint, NonOverlapping(tc.b, tc.a))
		})
	}
}

func TestVariableString(t *testing.T) {
	v := Variable{DisplayName: "t", Value: 2.456, Units: "s", DecimalPlaces: 2}
	assert.Equal(t, "t = 2.46s", v.String())

	v = Variable{DisplayName: "d", Value: 12, Units: "m", DecimalPlaces: 0}
	assert.Equal(t, "d = 12m", v.String())
}
