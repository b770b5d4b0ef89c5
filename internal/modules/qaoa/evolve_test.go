package qaoa

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReferenceEvolver(t *testing.T) (*Evolver, CostTable) {
	t.Helper()
	prob := referenceProblem()
	table, err := BuildCostTable(prob)
	require.NoError(t, err)

	ev, err := NewEvolver(NewCostOperator(table), BuildMixingOperator(prob.Size()), prob.Size())
	require.NoError(t, err)
	return ev, table
}

func stateNorm(psi []complex128) float64 {
	sum := 0.0
	for _, a := range psi {
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	return math.Sqrt(sum)
}

func TestInitialStateUniform(t *testing.T) {
	ev, _ := newReferenceEvolver(t)

	psi := ev.InitialState()
	require.Len(t, psi, 8)

	want := complex(1/math.Sqrt(8), 0)
	for s, a := range psi {
		assert.InDelta(t, real(want), real(a), 1e-12, "state %d", s)
		assert.InDelta(t, 0.0, imag(a), 1e-12, "state %d", s)
	}
	assert.InDelta(t, 1.0, stateNorm(psi), 1e-12)
}

func TestEvolvePreservesNorm(t *testing.T) {
	ev, _ := newReferenceEvolver(t)

	paramSets := []ParameterSet{
		{{Gamma: 0.7, Beta: 0.3}},
		{{Gamma: 4.62, Beta: 2.69}},
		{{Gamma: 1.1, Beta: 0.2}, {Gamma: 5.9, Beta: 3.0}},
		{{Gamma: 2 * math.Pi * 0.99, Beta: math.Pi * 0.99}},
	}
	for _, params := range paramSets {
		psi, err := ev.Evolve(params)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, stateNorm(psi), 1e-9)
	}
}

func TestZeroLayersIsIdentityCircuit(t *testing.T) {
	ev, table := newReferenceEvolver(t)

	psi, err := ev.Evolve(ParameterSet{})
	require.NoError(t, err)

	initial := ev.InitialState()
	for s := range psi {
		assert.InDelta(t, 0.0, cmplx.Abs(psi[s]-initial[s]), 1e-12, "state %d", s)
	}

	// The expectation of the uniform superposition is the plain mean cost.
	exp, err := Expectation(psi, ev.costDiag)
	require.NoError(t, err)
	assert.InDelta(t, table.Mean(), exp, 1e-9)
	assert.InDelta(t, 12.0, exp, 1e-9)
}

func TestZeroParametersAreIdentityOperators(t *testing.T) {
	// gamma = beta = 0 exponentiates to the identity, so a layer of zeros
	// must leave the uniform superposition untouched.
	ev, _ := newReferenceEvolver(t)

	psi, err := ev.Evolve(ParameterSet{{Gamma: 0, Beta: 0}})
	require.NoError(t, err)

	initial := ev.InitialState()
	for s := range psi {
		assert.InDelta(t, 0.0, cmplx.Abs(psi[s]-initial[s]), 1e-9, "state %d", s)
	}
}

func TestCostPhaseOnlyChangesPhases(t *testing.T) {
	// The cost exponential is diagonal: it must not move probability mass
	// between basis states.
	ev, _ := newReferenceEvolver(t)

	psi := ev.InitialState()
	ev.applyCostPhase(psi, 1.37)
	for s, a := range psi {
		assert.InDelta(t, 1.0/8.0, real(a)*real(a)+imag(a)*imag(a), 1e-12, "state %d", s)
	}
}

func TestExpectationIsReal(t *testing.T) {
	ev, _ := newReferenceEvolver(t)

	psi, err := ev.Evolve(ParameterSet{{Gamma: 2.3, Beta: 1.1}})
	require.NoError(t, err)

	exp, err := Expectation(psi, ev.costDiag)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(exp))

	// Costs are nonnegative on this instance, so the expectation is too.
	assert.GreaterOrEqual(t, exp, 0.0)
}
