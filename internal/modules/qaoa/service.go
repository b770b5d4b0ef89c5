package qaoa

import (
	"github.com/rs/zerolog"
)

// StateDetail is the per-basis-state breakdown of the cost landscape: the raw
// quadratic risk, the selection count, the squared budget violation, and the
// resulting penalized cost. One entry per candidate selection.
type StateDetail struct {
	BitString string  `json:"bitstring"`
	Cost      float64 `json:"cost"`
	Risk      float64 `json:"risk"`
	Selected  int     `json:"selected"`
	Violation float64 `json:"violation"`
}

// Solution is the engine's single output record: the decoded best candidate,
// the winning circuit parameters, the achieved expectation, the full
// probability distribution, and the exhaustive state table.
type Solution struct {
	BitString      string        `json:"bitstring"`
	Index          int           `json:"index"`
	Cost           float64       `json:"cost"`
	RawRisk        float64       `json:"raw_risk"`
	Feasible       bool          `json:"feasible"`
	SelectedAssets []int         `json:"selected_assets"`
	Parameters     ParameterSet  `json:"parameters"`
	Expectation    float64       `json:"expectation"`
	Distribution   []float64     `json:"distribution"`
	States         []StateDetail `json:"states"`
}

// Service runs QAOA portfolio optimizations within configured resource
// limits. It is stateless between calls; every Optimize builds its operators
// fresh and owns its statevectors.
type Service struct {
	limits Limits
	log    zerolog.Logger
}

// NewService creates a new optimization service.
func NewService(limits Limits, log zerolog.Logger) *Service {
	return &Service{
		limits: limits,
		log:    log.With().Str("component", "qaoa").Logger(),
	}
}

// Optimize is the engine's single logical operation. It validates the
// problem, checks resource limits, materializes the cost and mixing
// operators, searches circuit parameters over the grid, and decodes the most
// probable candidate at the winning parameters.
//
// The whole pass is deterministic for fixed inputs and grid resolution; a
// failed call produces no partial result.
func (s *Service) Optimize(prob Problem, layers int, grid GridResolution, opts SearchOptions) (*Solution, error) {
	if err := prob.Validate(); err != nil {
		return nil, err
	}
	n := prob.Size()
	if err := s.limits.Check(n); err != nil {
		return nil, err
	}
	if layers < 0 {
		return nil, &ValidationError{Field: "layers", Reason: "must be nonnegative"}
	}
	if layers > 0 {
		if err := grid.Validate(); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Int("assets", n).
		Int("budget", prob.Budget).
		Float64("penalty", prob.Penalty).
		Int("layers", layers).
		Int("grid_gamma", grid.Gamma).
		Int("grid_beta", grid.Beta).
		Msg("Starting QAOA optimization")

	table, err := BuildCostTable(prob)
	if err != nil {
		return nil, err
	}
	costOp := NewCostOperator(table)
	mixer := BuildMixingOperator(n)

	ev, err := NewEvolver(costOp, mixer, n)
	if err != nil {
		return nil, err
	}

	result, err := SearchParameters(ev, layers, grid, opts)
	if err != nil {
		return nil, err
	}

	psi, err := ev.Evolve(result.Params)
	if err != nil {
		return nil, err
	}
	measurement, err := Measure(psi, table, prob)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bitstring", measurement.BitString).
		Float64("cost", measurement.Cost).
		Float64("expectation", result.Expectation).
		Bool("feasible", measurement.Feasible).
		Msg("QAOA optimization complete")

	return &Solution{
		BitString:      measurement.BitString,
		Index:          measurement.Index,
		Cost:           measurement.Cost,
		RawRisk:        prob.RawRisk(measurement.Index),
		Feasible:       measurement.Feasible,
		SelectedAssets: SelectedAssets(measurement.Index, n),
		Parameters:     result.Params,
		Expectation:    result.Expectation,
		Distribution:   measurement.Distribution,
		States:         buildStateTable(prob, table),
	}, nil
}

// Limits returns the service's configured resource limits.
func (s *Service) Limits() Limits {
	return s.limits
}

// buildStateTable produces the exhaustive per-state breakdown used in
// reports: every candidate selection with its risk, count, violation and
// penalized cost.
func buildStateTable(prob Problem, table CostTable) []StateDetail {
	n := prob.Size()
	states := make([]StateDetail, len(table))
	for s := range table {
		violation := float64(selectionCount(s) - prob.Budget)
		states[s] = StateDetail{
			BitString: FormatBitString(s, n),
			Cost:      table[s],
			Risk:      prob.RawRisk(s),
			Selected:  selectionCount(s),
			Violation: violation * violation,
		}
	}
	return states
}
