package qaoa

import (
	"gonum.org/v1/gonum/mat"
)

// CostOperator is the diagonal cost Hamiltonian H_C, stored compactly as the
// vector of its 2^n diagonal entries. Entry s equals the CostTable value for
// basis state s exactly; the full matrix is never materialized.
type CostOperator []float64

// NewCostOperator builds the diagonal cost operator from a cost table. The
// mapping is the identity, so the diagonal is guaranteed to match the
// brute-force cost of every basis state.
func NewCostOperator(table CostTable) CostOperator {
	diag := make(CostOperator, len(table))
	copy(diag, table)
	return diag
}

// Single-qubit blocks for the mixing operator construction.
var (
	pauliX    = mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	identity2 = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
)

// kron returns the Kronecker product of a and b as a fresh dense matrix.
func kron(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar*br, ac*bc, nil)
	out.Kronecker(a, b)
	return out
}

// BuildMixingOperator constructs the mixing Hamiltonian
//
//	H_M = sum_{i=0}^{n-1} X_i
//
// where X_i is the Pauli-X flip on qubit i: the Kronecker product of n 2x2
// blocks, identity everywhere except an X block at position i. The leftmost
// tensor factor is qubit 0, so the construction agrees with the bit-order
// convention used by the cost operator (asset 0 = most significant bit).
//
// Cost is O(n * 4^n) time and space; this is the scalability ceiling of the
// whole engine and the reason resource limits are checked before calling it.
func BuildMixingOperator(n int) *mat.SymDense {
	dim := 1 << uint(n)
	acc := mat.NewDense(dim, dim, nil)

	for i := 0; i < n; i++ {
		term := mat.NewDense(1, 1, []float64{1})
		for j := 0; j < n; j++ {
			if j == i {
				term = kron(term, pauliX)
			} else {
				term = kron(term, identity2)
			}
		}
		acc.Add(acc, term)
	}

	// Each term is symmetric by construction, so the sum is too; copy into
	// symmetric storage for the eigendecomposition.
	sym := mat.NewSymDense(dim, nil)
	for r := 0; r < dim; r++ {
		for c := r; c < dim; c++ {
			sym.SetSym(r, c, acc.At(r, c))
		}
	}
	return sym
}
