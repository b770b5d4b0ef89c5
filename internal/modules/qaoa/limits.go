package qaoa

import (
	"math"

	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultMaxQubits is the default ceiling on problem size. At 14 qubits the
// dense mixing operator and its eigenvectors already occupy roughly 6 GB;
// beyond that the engine is unusable on typical hardware.
const DefaultMaxQubits = 14

// Limits bounds the resources a single optimization may claim. MemoryCheck
// additionally compares the dense-storage estimate against the machine's
// available memory at call time.
type Limits struct {
	MaxQubits   int
	MemoryCheck bool
}

// DefaultLimits returns the default resource limits with the memory check
// enabled.
func DefaultLimits() Limits {
	return Limits{MaxQubits: DefaultMaxQubits, MemoryCheck: true}
}

// EstimateBytes returns the approximate memory needed for the dense operator
// stage of an n-qubit problem: the mixing operator, its eigenvector matrix,
// and one working copy, each 2^n x 2^n float64. The estimate saturates at
// MaxUint64 once 24 * 4^n no longer fits in 64 bits (n >= 30) rather than
// wrapping to a small number.
func EstimateBytes(n int) uint64 {
	if n >= 30 {
		return math.MaxUint64
	}
	dim := uint64(1) << uint(n)
	return 3 * dim * dim * 8
}

// Check fails fast with a ResourceLimitError when an n-qubit problem would
// exceed the qubit ceiling or available memory. It runs before any 4^n-sized
// allocation is attempted.
func (l Limits) Check(n int) error {
	maxQubits := l.MaxQubits
	if maxQubits <= 0 {
		maxQubits = DefaultMaxQubits
	}
	if n > maxQubits {
		return &ResourceLimitError{Qubits: n, MaxQubits: maxQubits, Required: EstimateBytes(n)}
	}
	if l.MemoryCheck {
		vm, err := mem.VirtualMemory()
		// If the platform cannot report memory stats the ceiling alone governs.
		if err == nil && EstimateBytes(n) > vm.Available {
			return &ResourceLimitError{
				Qubits:    n,
				MaxQubits: maxQubits,
				Required:  EstimateBytes(n),
				Available: vm.Available,
			}
		}
	}
	return nil
}
