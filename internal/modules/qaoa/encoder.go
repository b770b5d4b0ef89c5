// Package qaoa implements a classical statevector simulation of the Quantum
// Approximate Optimization Algorithm applied to constrained portfolio
// selection: choose exactly k of n assets minimizing the quadratic risk
// x'Qx, with the budget constraint folded in as a penalty term.
//
// The engine is deliberately exponential in n (the statevector has 2^n
// entries and the mixing operator is a dense 2^n x 2^n matrix); it targets
// small instances only and fails fast when the problem would not fit.
package qaoa

import (
	"math"
	"math/bits"
	"strings"
)

// symmetryTol is the tolerance used when validating risk matrix symmetry.
const symmetryTol = 1e-9

// Problem is a single portfolio selection instance.
//
// Risk is an n x n symmetric matrix of pairwise risk coefficients, Budget is
// the exact number of assets to select, and Penalty weighs the squared budget
// violation in the cost function:
//
//	cost(x) = x'Qx + Penalty * (sum(x) - Budget)^2
type Problem struct {
	Risk    [][]float64
	Budget  int
	Penalty float64
}

// Size returns the number of assets (= qubits) in the problem.
func (p Problem) Size() int {
	return len(p.Risk)
}

// Validate checks the problem invariants: the risk matrix must be square and
// symmetric within tolerance, the budget must lie in [0, n], and the penalty
// weight must be nonnegative.
func (p Problem) Validate() error {
	n := p.Size()
	if n == 0 {
		return &ValidationError{Field: "risk matrix", Reason: "matrix is empty"}
	}
	for _, row := range p.Risk {
		if len(row) != n {
			return &ValidationError{Field: "risk matrix", Reason: "matrix is not square"}
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(p.Risk[i][j]-p.Risk[j][i]) > symmetryTol {
				return &ValidationError{Field: "risk matrix", Reason: "matrix is not symmetric"}
			}
		}
	}
	if p.Budget < 0 || p.Budget > n {
		return &ValidationError{Field: "budget", Reason: "must be between 0 and the number of assets"}
	}
	if p.Penalty < 0 {
		return &ValidationError{Field: "penalty", Reason: "must be nonnegative"}
	}
	return nil
}

// Bit-order convention
//
// Basis state s in [0, 2^n) encodes a selection vector: asset i is selected
// when bit (n-1-i) of s is set, i.e. asset 0 maps to the MOST significant of
// the n bits. This matches the textual bitstring "b0 b1 ... b(n-1)" read left
// to right and is the single convention shared by the cost operator, the
// mixing operator tensor ordering, and the measurement decoder. Divergence
// between the two operators would silently corrupt results, so every
// component goes through these helpers.

// bitAt reports the selection bit for asset i in basis state s.
func bitAt(state, i, n int) int {
	return (state >> uint(n-1-i)) & 1
}

// selectionCount returns the number of selected assets in basis state s.
func selectionCount(state int) int {
	return bits.OnesCount(uint(state))
}

// FormatBitString renders basis state s as an n-character binary string,
// asset 0 leftmost.
func FormatBitString(state, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		if bitAt(state, i, n) == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// SelectedAssets returns the indices of the assets selected in basis state s,
// in ascending order.
func SelectedAssets(state, n int) []int {
	selected := make([]int, 0, selectionCount(state))
	for i := 0; i < n; i++ {
		if bitAt(state, i, n) == 1 {
			selected = append(selected, i)
		}
	}
	return selected
}

// RawRisk evaluates the unconstrained quadratic risk x'Qx for basis state s.
func (p Problem) RawRisk(state int) float64 {
	n := p.Size()
	risk := 0.0
	for i := 0; i < n; i++ {
		if bitAt(state, i, n) == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			if bitAt(state, j, n) == 1 {
				risk += p.Risk[i][j]
			}
		}
	}
	return risk
}

// Cost evaluates the full penalized cost for basis state s:
// x'Qx + Penalty * (sum(x) - Budget)^2.
func (p Problem) Cost(state int) float64 {
	violation := float64(selectionCount(state) - p.Budget)
	return p.RawRisk(state) + p.Penalty*violation*violation
}

// CostTable maps every basis state to its penalized cost. Index s holds
// cost(x) for the selection vector encoded by s under the shared bit
// convention. Built once per problem and never mutated afterwards.
type CostTable []float64

// BuildCostTable validates the problem and enumerates the cost of all 2^n
// candidate selections. O(n^2 * 2^n) time, O(2^n) space.
func BuildCostTable(p Problem) (CostTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dim := 1 << uint(p.Size())
	table := make(CostTable, dim)
	for s := 0; s < dim; s++ {
		table[s] = p.Cost(s)
	}
	return table, nil
}

// Mean returns the arithmetic mean cost over all basis states. This equals
// the expectation value of the uniform superposition (the p=0 circuit).
func (t CostTable) Mean() float64 {
	sum := 0.0
	for _, c := range t {
		sum += c
	}
	return sum / float64(len(t))
}
