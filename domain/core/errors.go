package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrInsufficientData marks a participant with too few answered items to
	// estimate ability or fit quality. It is a defined missing-data case,
	// not a failure.
	ErrInsufficientData = errors.New("insufficient data for ability estimation")

	// ErrNonConvergence marks an optimizer run that did not reach a solution.
	ErrNonConvergence = errors.New("optimizer failed to converge")

	// ErrSingularHessian marks a jackknife Hessian approximation that is not
	// positive-definite; Cook's D is undefined for the affected participants.
	ErrSingularHessian = errors.New("singular hessian approximation")

	// Input errors
	ErrInvalidResponse = errors.New("response code outside item category range")
	ErrEmptyMatrix     = errors.New("response matrix has no participants or items")
)

// NewNonConvergenceError wraps ErrNonConvergence with the fit context
func NewNonConvergenceError(context string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrNonConvergence, context, cause)
	}
	return fmt.Errorf("%w: %s", ErrNonConvergence, context)
}

// IsNonConvergence reports whether err is an optimizer convergence failure
func IsNonConvergence(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}
