package qaoa

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/optimize"
)

// maxSearchTrials caps the grid size at ~67M evolutions. The trial count
// grows as (G_gamma * G_beta)^layers, so an immoderate depth request would
// otherwise overflow the count or exhaust memory on the results slice; the
// search refuses such requests up front instead.
const maxSearchTrials = 1 << 26

// GridResolution is the number of sample points per layer for each parameter
// range. Gamma samples are spread over [0, 2*pi), beta samples over [0, pi),
// both half-open: point j of G is j/G of the range. Half-open uniform grids
// nest (doubling the resolution keeps every existing point), which is what
// guarantees that a finer grid never yields a worse minimum.
type GridResolution struct {
	Gamma int `json:"gamma"`
	Beta  int `json:"beta"`
}

// Validate checks that both resolutions are positive.
func (g GridResolution) Validate() error {
	if g.Gamma < 1 || g.Beta < 1 {
		return &ValidationError{Field: "grid resolution", Reason: "must be positive in both dimensions"}
	}
	return nil
}

// SearchOptions tunes the parameter search.
//
// Workers sets the number of goroutines evaluating grid points; trials are
// independent (each owns its statevector) and results are gathered by grid
// index, so the outcome is identical for any worker count. Refine enables a
// derivative-free Nelder-Mead polish of the winning grid point, the extension
// point for deeper circuits where a full 2p-dimensional grid becomes too
// expensive; the refined parameters are only adopted when they do not worsen
// the expectation.
type SearchOptions struct {
	Workers int
	Refine  bool
}

// SearchResult is the outcome of a parameter search: the winning parameter
// set and the expectation value it achieves.
type SearchResult struct {
	Params      ParameterSet
	Expectation float64
}

// gridSpec enumerates the Cartesian product of per-layer (gamma, beta)
// candidates. Trial t is decomposed layer by layer, most significant digit
// first, gamma more significant than beta within a layer, so ascending t is
// exactly ascending lexicographic (gamma_0, beta_0, gamma_1, beta_1, ...)
// order. The minimum scan keeps the first strictly better trial, which makes
// the documented lexicographic tie-break fall out of the enumeration order.
type gridSpec struct {
	layers int
	grid   GridResolution
}

// total returns the number of grid trials, (G_gamma * G_beta)^layers, with
// overflow-safe accumulation: the running product is checked against
// maxSearchTrials by division before each multiplication, so the count can
// neither wrap nor grow past the ceiling.
func (g gridSpec) total() (int, error) {
	if g.grid.Gamma > maxSearchTrials/g.grid.Beta {
		return 0, &ValidationError{
			Field:  "grid resolution",
			Reason: fmt.Sprintf("%d x %d points per layer exceed the supported maximum of %d trials", g.grid.Gamma, g.grid.Beta, maxSearchTrials),
		}
	}
	perLayer := g.grid.Gamma * g.grid.Beta
	total := 1
	for l := 0; l < g.layers; l++ {
		if total > maxSearchTrials/perLayer {
			return 0, &ValidationError{
				Field:  "layers",
				Reason: fmt.Sprintf("a %d x %d grid over %d layers exceeds the supported maximum of %d trials", g.grid.Gamma, g.grid.Beta, g.layers, maxSearchTrials),
			}
		}
		total *= perLayer
	}
	return total, nil
}

// paramsAt decodes trial index t into a parameter set.
func (g gridSpec) paramsAt(t int) ParameterSet {
	perLayer := g.grid.Gamma * g.grid.Beta
	digits := make([]int, g.layers)
	for l := g.layers - 1; l >= 0; l-- {
		digits[l] = t % perLayer
		t /= perLayer
	}

	params := make(ParameterSet, g.layers)
	for l, q := range digits {
		gammaIdx := q / g.grid.Beta
		betaIdx := q % g.grid.Beta
		params[l] = Layer{
			Gamma: 2 * math.Pi * float64(gammaIdx) / float64(g.grid.Gamma),
			Beta:  math.Pi * float64(betaIdx) / float64(g.grid.Beta),
		}
	}
	return params
}

// SearchParameters finds the parameter set minimizing the expected cost over
// the grid. For layers = 0 the circuit is the identity and the search reduces
// to evaluating the uniform superposition. Grid cost grows as
// (G_gamma * G_beta)^layers evolutions, the reason p = 1 is the default
// supported depth.
func SearchParameters(ev *Evolver, layers int, grid GridResolution, opts SearchOptions) (*SearchResult, error) {
	if layers < 0 {
		return nil, &ValidationError{Field: "layers", Reason: "must be nonnegative"}
	}
	if layers == 0 {
		exp, err := Expectation(ev.InitialState(), ev.costDiag)
		if err != nil {
			return nil, err
		}
		return &SearchResult{Params: ParameterSet{}, Expectation: exp}, nil
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	spec := gridSpec{layers: layers, grid: grid}
	total, err := spec.total()
	if err != nil {
		return nil, err
	}
	expectations, err := evaluateGrid(ev, spec, total, opts.Workers)
	if err != nil {
		return nil, err
	}

	bestIdx := 0
	for t, e := range expectations {
		if e < expectations[bestIdx] {
			bestIdx = t
		}
	}
	best := &SearchResult{
		Params:      spec.paramsAt(bestIdx),
		Expectation: expectations[bestIdx],
	}

	if opts.Refine {
		best = refineParameters(ev, best)
	}
	return best, nil
}

// evaluateGrid computes the expectation of every grid trial. Each trial
// evolves its own statevector against the shared read-only evolver, so the
// work distributes across workers without shared mutable state; results land
// in a slice indexed by trial, keeping the reduction deterministic.
func evaluateGrid(ev *Evolver, spec gridSpec, total, workers int) ([]float64, error) {
	expectations := make([]float64, total)

	evalOne := func(t int) error {
		psi, err := ev.Evolve(spec.paramsAt(t))
		if err != nil {
			return err
		}
		exp, err := Expectation(psi, ev.costDiag)
		if err != nil {
			return err
		}
		expectations[t] = exp
		return nil
	}

	if workers <= 1 {
		for t := 0; t < total; t++ {
			if err := evalOne(t); err != nil {
				return nil, err
			}
		}
		return expectations, nil
	}

	trials := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range trials {
				if err := evalOne(t); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	for t := 0; t < total; t++ {
		trials <- t
	}
	close(trials)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return expectations, nil
}

// refineParameters polishes the grid winner with Nelder-Mead. Failures and
// non-improving results fall back to the grid result, so refinement can never
// make the search worse; it is purely an extension point for deeper circuits.
func refineParameters(ev *Evolver, gridBest *SearchResult) *SearchResult {
	layers := len(gridBest.Params)

	objective := optimize.Problem{
		Func: func(x []float64) float64 {
			params := make(ParameterSet, layers)
			for l := 0; l < layers; l++ {
				params[l] = Layer{Gamma: x[2*l], Beta: x[2*l+1]}
			}
			psi, err := ev.Evolve(params)
			if err != nil {
				return math.Inf(1)
			}
			exp, err := Expectation(psi, ev.costDiag)
			if err != nil {
				return math.Inf(1)
			}
			return exp
		},
	}

	initial := make([]float64, 2*layers)
	for l, layer := range gridBest.Params {
		initial[2*l] = layer.Gamma
		initial[2*l+1] = layer.Beta
	}

	result, err := optimize.Minimize(objective, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		return gridBest
	}
	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}
	if !successStatuses[result.Status] || result.F >= gridBest.Expectation {
		return gridBest
	}

	refined := make(ParameterSet, layers)
	for l := 0; l < layers; l++ {
		refined[l] = Layer{Gamma: result.X[2*l], Beta: result.X[2*l+1]}
	}
	return &SearchResult{Params: refined, Expectation: result.F}
}
