package qaoa

import "math"

// Measurement is the decoded outcome of sampling the final statevector: the
// full probability distribution, the most probable basis state, and its
// decoded selection.
type Measurement struct {
	Distribution []float64
	Index        int
	BitString    string
	Cost         float64
	Feasible     bool
}

// Measure converts the final statevector into the Born-rule probability
// distribution |psi_x|^2, picks the most probable basis state (ties broken by
// smallest index), and decodes it under the shared bit convention. The
// distribution must sum to 1 within tolerance; anything else indicates the
// evolution broke unitarity.
func Measure(psi []complex128, table CostTable, prob Problem) (*Measurement, error) {
	n := prob.Size()

	dist := make([]float64, len(psi))
	sum := 0.0
	for s, a := range psi {
		dist[s] = real(a)*real(a) + imag(a)*imag(a)
		sum += dist[s]
	}
	if residual := math.Abs(sum - 1); residual > normTol {
		return nil, &InternalConsistencyError{Check: "probability mass", Residual: residual}
	}

	best := 0
	for s, p := range dist {
		if p > dist[best] {
			best = s
		}
	}

	return &Measurement{
		Distribution: dist,
		Index:        best,
		BitString:    FormatBitString(best, n),
		Cost:         table[best],
		Feasible:     selectionCount(best) == prob.Budget,
	}, nil
}
