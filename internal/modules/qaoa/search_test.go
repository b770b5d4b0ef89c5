package qaoa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridEnumerationIsLexicographic(t *testing.T) {
	spec := gridSpec{layers: 1, grid: GridResolution{Gamma: 4, Beta: 2}}
	total, err := spec.total()
	require.NoError(t, err)
	require.Equal(t, 8, total)

	// Ascending trial index must walk gamma-major, beta-minor.
	prev := spec.paramsAt(0)
	assert.Equal(t, Layer{Gamma: 0, Beta: 0}, prev[0])
	for tr := 1; tr < total; tr++ {
		cur := spec.paramsAt(tr)
		if cur[0].Gamma == prev[0].Gamma {
			assert.Greater(t, cur[0].Beta, prev[0].Beta)
		} else {
			assert.Greater(t, cur[0].Gamma, prev[0].Gamma)
		}
		prev = cur
	}
}

func TestGridPointsStayInRange(t *testing.T) {
	spec := gridSpec{layers: 2, grid: GridResolution{Gamma: 5, Beta: 3}}
	total, err := spec.total()
	require.NoError(t, err)
	for tr := 0; tr < total; tr++ {
		for _, layer := range spec.paramsAt(tr) {
			assert.GreaterOrEqual(t, layer.Gamma, 0.0)
			assert.Less(t, layer.Gamma, 2*math.Pi)
			assert.GreaterOrEqual(t, layer.Beta, 0.0)
			assert.Less(t, layer.Beta, math.Pi)
		}
	}
}

func TestSearchZeroLayers(t *testing.T) {
	ev, table := newReferenceEvolver(t)

	result, err := SearchParameters(ev, 0, GridResolution{}, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Params)
	assert.InDelta(t, table.Mean(), result.Expectation, 1e-9)
}

func TestSearchRejectsBadInput(t *testing.T) {
	ev, _ := newReferenceEvolver(t)

	var verr *ValidationError
	_, err := SearchParameters(ev, -1, GridResolution{Gamma: 4, Beta: 4}, SearchOptions{})
	require.ErrorAs(t, err, &verr)

	_, err = SearchParameters(ev, 1, GridResolution{Gamma: 0, Beta: 4}, SearchOptions{})
	require.ErrorAs(t, err, &verr)

	_, err = SearchParameters(ev, 1, GridResolution{Gamma: 4, Beta: -2}, SearchOptions{})
	require.ErrorAs(t, err, &verr)
}

func TestSearchRejectsOversizedGrid(t *testing.T) {
	// The trial count (G_gamma * G_beta)^layers must be bounded before any
	// allocation: a depth that wraps the integer product to zero or to an
	// absurd positive value has to come back as an error, never a panic.
	ev, _ := newReferenceEvolver(t)

	var verr *ValidationError

	// 4^32 wraps a 64-bit int back to exactly zero.
	_, err := SearchParameters(ev, 32, GridResolution{Gamma: 2, Beta: 2}, SearchOptions{})
	require.ErrorAs(t, err, &verr)

	// 16^15 = 2^60 does not wrap but is far beyond any allocatable slice.
	_, err = SearchParameters(ev, 15, GridResolution{Gamma: 4, Beta: 4}, SearchOptions{})
	require.ErrorAs(t, err, &verr)

	// A single layer over an enormous grid trips the per-layer guard.
	_, err = SearchParameters(ev, 1, GridResolution{Gamma: 1 << 20, Beta: 1 << 20}, SearchOptions{})
	require.ErrorAs(t, err, &verr)

	// The guard must not reject sizes that are actually evaluable.
	spec := gridSpec{layers: 2, grid: GridResolution{Gamma: 50, Beta: 50}}
	total, err := spec.total()
	require.NoError(t, err)
	assert.Equal(t, 6250000, total)
}

func TestFinerGridNeverWorse(t *testing.T) {
	// Half-open uniform grids nest: doubling the resolution keeps every
	// coarse point, so the fine minimum can never exceed the coarse one.
	ev, _ := newReferenceEvolver(t)

	coarse, err := SearchParameters(ev, 1, GridResolution{Gamma: 8, Beta: 8}, SearchOptions{})
	require.NoError(t, err)

	fine, err := SearchParameters(ev, 1, GridResolution{Gamma: 16, Beta: 16}, SearchOptions{})
	require.NoError(t, err)

	assert.LessOrEqual(t, fine.Expectation, coarse.Expectation+1e-12)

	finer, err := SearchParameters(ev, 1, GridResolution{Gamma: 32, Beta: 32}, SearchOptions{})
	require.NoError(t, err)

	assert.LessOrEqual(t, finer.Expectation, fine.Expectation+1e-12)
}

func TestSearchTieBreaksLexicographically(t *testing.T) {
	// A flat cost landscape makes every parameter set equally good; the
	// search must deterministically return the smallest tuple.
	prob := Problem{
		Risk:    [][]float64{{0, 0}, {0, 0}},
		Budget:  0,
		Penalty: 0,
	}
	table, err := BuildCostTable(prob)
	require.NoError(t, err)
	ev, err := NewEvolver(NewCostOperator(table), BuildMixingOperator(2), 2)
	require.NoError(t, err)

	result, err := SearchParameters(ev, 1, GridResolution{Gamma: 6, Beta: 6}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Params, 1)
	assert.Equal(t, 0.0, result.Params[0].Gamma)
	assert.Equal(t, 0.0, result.Params[0].Beta)
	assert.InDelta(t, 0.0, result.Expectation, 1e-9)
}

func TestParallelSearchMatchesSequential(t *testing.T) {
	ev, _ := newReferenceEvolver(t)
	grid := GridResolution{Gamma: 12, Beta: 12}

	sequential, err := SearchParameters(ev, 1, grid, SearchOptions{Workers: 1})
	require.NoError(t, err)

	parallel, err := SearchParameters(ev, 1, grid, SearchOptions{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, sequential.Params, parallel.Params)
	assert.Equal(t, sequential.Expectation, parallel.Expectation)
}

func TestRefinementNeverWorsens(t *testing.T) {
	ev, _ := newReferenceEvolver(t)
	grid := GridResolution{Gamma: 10, Beta: 10}

	plain, err := SearchParameters(ev, 1, grid, SearchOptions{})
	require.NoError(t, err)

	refined, err := SearchParameters(ev, 1, grid, SearchOptions{Refine: true})
	require.NoError(t, err)

	assert.LessOrEqual(t, refined.Expectation, plain.Expectation+1e-12)
}

func TestSearchTwoLayers(t *testing.T) {
	// p = 2 enumerates the full 4-dimensional grid; adding a layer can only
	// improve on the best single-layer point it contains (the second layer
	// grid includes the identity at gamma = beta = 0).
	ev, _ := newReferenceEvolver(t)

	single, err := SearchParameters(ev, 1, GridResolution{Gamma: 6, Beta: 6}, SearchOptions{})
	require.NoError(t, err)

	double, err := SearchParameters(ev, 2, GridResolution{Gamma: 6, Beta: 6}, SearchOptions{Workers: 4})
	require.NoError(t, err)
	require.Len(t, double.Params, 2)

	assert.LessOrEqual(t, double.Expectation, single.Expectation+1e-9)
}
