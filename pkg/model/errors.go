package model

import "errors"

// The four failure categories every public modeling operation reports
// against. Callers classify with errors.Is; the HTTP layer maps them to
// status codes. Operations never panic across a package boundary: a fault in
// the geometry kernel is recovered at the operation boundary and surfaces as
// ErrKernelFailure.
var (
	// ErrNotFound reports an unknown plane, sketch, element, shape, or
	// feature identifier.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameters reports a non-positive dimension, degenerate
	// direction, or unsupported type combination.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrGeometricFailure reports geometry that cannot be computed: parallel
	// lines for a fillet, a null or invalid kernel result, a degenerate wire.
	ErrGeometricFailure = errors.New("geometric failure")

	// ErrKernelFailure reports a fault raised inside the geometry kernel.
	ErrKernelFailure = errors.New("kernel failure")
)
