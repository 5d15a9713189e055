package spatialfdr

import "errors"

// All failures here are caller-input errors: the corrector performs no I/O,
// so nothing is transient and nothing is retried. Callers match with
// errors.Is and supply different arguments.
var (
	// ErrUnsupportedPolicy means the weighting name is not one of the known
	// policies. Raised before any computation starts.
	ErrUnsupportedPolicy = errors.New("spatialfdr: unsupported weighting policy")

	// ErrMissingInput means the chosen policy needs an optional input that
	// was not supplied (reduced dimensions, distances or index vertices).
	ErrMissingInput = errors.New("spatialfdr: missing input")

	// ErrShapeMismatch means the neighbourhood, p-value and index-vertex
	// counts disagree.
	ErrShapeMismatch = errors.New("spatialfdr: shape mismatch")

	// ErrTypeMismatch means Distances carries an unknown DistanceSource
	// implementation. The tagged union makes this unreachable with the
	// types in this package.
	ErrTypeMismatch = errors.New("spatialfdr: unsupported distance source type")
)
