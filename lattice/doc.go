// Package lattice builds recombining trinomial trees for one-factor
// short-rate models and fits them to a market discount curve.
//
// What:
//
//   - TrinomialTree discretizes a process.Diffusion on a timegrid.Grid. Each
//     node branches to three adjacent nodes of the next slice with
//     moment-matching probabilities; slices grow by at most two nodes. Grids
//     whose step shrinks too sharply would break this and are rejected.
//   - ShortRateTree sweeps the tree forward in time. At every slice it solves
//     for the shift theta_i that makes the tree reprice the market
//     zero-coupon bond maturing one step later, then propagates
//     Arrow-Debreu state prices to the next slice.
//   - Asset values are rolled back through a calibrated tree to price
//     claims (DiscountBond, BondOption, or any type implementing Asset).
//
// Errors:
//
//   - DiscretizationError (wraps ErrDegenerateDiscretization): a branching
//     probability fell outside [0, 1], the step variance is not positive, or
//     a slice grew by more than two nodes.
//   - CalibrationError: the per-slice root-find failed; it wraps
//     solver.ErrMaxEvaluations, solver.ErrNotBracketed or
//     ErrNonMonotonicObjective.
//   - ErrCurveTooShort, ErrNilInput: precondition violations.
//
// A tree is immutable once NewShortRateTree returns; a model whose
// parameters change builds a new tree.
package lattice
