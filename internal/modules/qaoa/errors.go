package qaoa

import "fmt"

// ValidationError reports malformed caller input: a non-square or asymmetric
// risk matrix, a budget outside [0, n], a negative penalty, or a zero/negative
// grid resolution. There is no recovery; the caller must fix the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ResourceLimitError reports that the requested problem size would exceed the
// configured qubit ceiling or the machine's available memory. It is raised
// before any operator allocation happens.
type ResourceLimitError struct {
	Qubits    int
	MaxQubits int
	Required  uint64 // estimated bytes for dense operator storage
	Available uint64 // available system memory (0 when the ceiling tripped first)
}

func (e *ResourceLimitError) Error() string {
	if e.Available > 0 {
		return fmt.Sprintf("problem size %d qubits needs ~%d bytes of dense operator storage, only %d available", e.Qubits, e.Required, e.Available)
	}
	return fmt.Sprintf("problem size %d qubits exceeds the configured ceiling of %d", e.Qubits, e.MaxQubits)
}

// InternalConsistencyError reports a violated simulation post-condition, such
// as statevector norm drift or a non-negligible imaginary expectation value.
// It indicates a defect in the engine, not a user input error.
type InternalConsistencyError struct {
	Check    string
	Residual float64
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency check %q failed: residual %g exceeds tolerance", e.Check, e.Residual)
}
