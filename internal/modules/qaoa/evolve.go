package qaoa

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// normTol is the tolerance for the unitarity and realness post-conditions:
// statevector norm after every layer, probability mass of the measured
// distribution, and the imaginary residue of the expectation value.
const normTol = 1e-9

// Layer is one (gamma, beta) pair of circuit parameters: gamma scales the
// cost exponential, beta the mixing exponential.
type Layer struct {
	Gamma float64 `json:"gamma"`
	Beta  float64 `json:"beta"`
}

// ParameterSet is an ordered sequence of layers; layer order matters because
// the exponentials do not commute.
type ParameterSet []Layer

// Evolver applies QAOA circuits to statevectors for one fixed problem
// instance. The cost diagonal and the eigendecomposition of the mixing
// operator are computed once at construction and shared read-only by every
// evolution, so independent parameter trials may run concurrently.
type Evolver struct {
	costDiag CostOperator
	eigVals  []float64
	eigVecs  *mat.Dense
	n        int
	dim      int
}

// NewEvolver factorizes the mixing operator and prepares an evolver for the
// given cost diagonal. The symmetric eigendecomposition H_M = V diag(L) V'
// turns the mixing exponential into exp(-i*beta*H_M) = V diag(exp(-i*beta*L)) V'.
func NewEvolver(costDiag CostOperator, mixer *mat.SymDense, n int) (*Evolver, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(mixer, true); !ok {
		return nil, &InternalConsistencyError{Check: "mixing operator eigendecomposition", Residual: math.Inf(1)}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	return &Evolver{
		costDiag: costDiag,
		eigVals:  eig.Values(nil),
		eigVecs:  &vecs,
		n:        n,
		dim:      len(costDiag),
	}, nil
}

// InitialState returns the uniform superposition psi_0 = (1/sqrt(2^n)) * 1.
func (e *Evolver) InitialState() []complex128 {
	amp := complex(1.0/math.Sqrt(float64(e.dim)), 0)
	psi := make([]complex128, e.dim)
	for s := range psi {
		psi[s] = amp
	}
	return psi
}

// Evolve runs the full circuit: the uniform superposition followed by
// alternating cost and mixing exponentials, one pair per layer. An empty
// parameter set (p = 0) returns the initial state unchanged. The statevector
// norm is asserted within tolerance after every layer; both exponentials are
// unitary, so any drift indicates a defect.
func (e *Evolver) Evolve(params ParameterSet) ([]complex128, error) {
	psi := e.InitialState()
	for _, layer := range params {
		e.applyCostPhase(psi, layer.Gamma)
		psi = e.applyMixing(psi, layer.Beta)
		if err := checkNorm(psi); err != nil {
			return nil, err
		}
	}
	return psi, nil
}

// applyCostPhase applies U_C = exp(-i*gamma*H_C) in place. H_C is diagonal,
// so this is an elementwise phase rotation by the cost of each basis state;
// no matrix exponential is needed.
func (e *Evolver) applyCostPhase(psi []complex128, gamma float64) {
	for s := range psi {
		psi[s] *= cmplx.Exp(complex(0, -gamma*e.costDiag[s]))
	}
}

// applyMixing applies U_M = exp(-i*beta*H_M) via the precomputed
// eigendecomposition: rotate into the eigenbasis, apply the diagonal phase,
// rotate back. O(4^n) per application.
func (e *Evolver) applyMixing(psi []complex128, beta float64) []complex128 {
	// y = V' psi
	y := make([]complex128, e.dim)
	for k := 0; k < e.dim; k++ {
		var acc complex128
		for r := 0; r < e.dim; r++ {
			acc += complex(e.eigVecs.At(r, k), 0) * psi[r]
		}
		y[k] = acc * cmplx.Exp(complex(0, -beta*e.eigVals[k]))
	}

	// psi' = V y
	out := make([]complex128, e.dim)
	for r := 0; r < e.dim; r++ {
		var acc complex128
		for k := 0; k < e.dim; k++ {
			acc += complex(e.eigVecs.At(r, k), 0) * y[k]
		}
		out[r] = acc
	}
	return out
}

// checkNorm verifies ||psi|| = 1 within tolerance.
func checkNorm(psi []complex128) error {
	sum := 0.0
	for _, a := range psi {
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	if residual := math.Abs(math.Sqrt(sum) - 1); residual > normTol {
		return &InternalConsistencyError{Check: "statevector norm", Residual: residual}
	}
	return nil
}

// Expectation computes E = <psi|H_C|psi> = sum_x |psi_x|^2 * cost(x). The
// accumulation is done in complex arithmetic so that a non-negligible
// imaginary residue (which a Hermitian diagonal operator can never produce)
// is caught instead of silently discarded.
func Expectation(psi []complex128, costDiag CostOperator) (float64, error) {
	var acc complex128
	for s, a := range psi {
		acc += cmplx.Conj(a) * a * complex(costDiag[s], 0)
	}
	if residual := math.Abs(imag(acc)); residual > normTol {
		return 0, &InternalConsistencyError{Check: "expectation imaginary part", Residual: residual}
	}
	return real(acc), nil
}
