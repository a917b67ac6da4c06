package lattice

import (
	"errors"
	"fmt"
)

var (
	// ErrNilInput indicates a nil process, grid, dynamics or curve.
	ErrNilInput = errors.New("lattice: nil input")
	// ErrDegenerateDiscretization indicates invalid branching probabilities or step variance.
	ErrDegenerateDiscretization = errors.New("lattice: degenerate discretization")
	// ErrCurveTooShort indicates a time grid that ends after the curve's MaxTime.
	ErrCurveTooShort = errors.New("lattice: time grid extends beyond the term structure")
	// ErrNonMonotonicObjective indicates the per-slice objective changes
	// direction on the bracket, so the fitted root may be spurious.
	ErrNonMonotonicObjective = errors.New("lattice: non-monotonic calibration objective")
	// ErrFittingNotSet indicates a fitting parameter lookup at an uncalibrated time.
	ErrFittingNotSet = errors.New("lattice: fitting parameter not set")
	// ErrRollback indicates an invalid rollback request.
	ErrRollback = errors.New("lattice: invalid rollback")
)

// DiscretizationError reports the slice and node at which the trinomial
// discretization became invalid. Node is the space index j, with the root
// of the tree at j = 0.
type DiscretizationError struct {
	Slice         int
	Node          int
	Time          float64
	Probabilities [3]float64
	Reason        string
}

func (e *DiscretizationError) Error() string {
	return fmt.Sprintf("lattice: degenerate discretization at slice %d (t=%g), node %d: %s (pDown=%g, pMid=%g, pUp=%g)",
		e.Slice, e.Time, e.Node, e.Reason, e.Probabilities[0], e.Probabilities[1], e.Probabilities[2])
}

func (e *DiscretizationError) Unwrap() error { return ErrDegenerateDiscretization }

// CalibrationError reports the slice whose shift could not be fitted.
type CalibrationError struct {
	Slice       int
	Time        float64
	Evaluations int
	Err         error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("lattice: calibration failed at slice %d (t=%g) after %d evaluations: %v",
		e.Slice, e.Time, e.Evaluations, e.Err)
}

func (e *CalibrationError) Unwrap() error { return e.Err }
