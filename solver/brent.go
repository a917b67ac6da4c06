// Package solver provides bracketed one-dimensional root finding.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotBracketed is returned when f(min) and f(max) have the same sign.
	ErrNotBracketed = errors.New("solver: root not bracketed")
	// ErrMaxEvaluations is returned when the evaluation budget is exhausted.
	ErrMaxEvaluations = errors.New("solver: maximum number of function evaluations exceeded")
	// ErrInvalidBracket is returned for min >= max, a guess outside the
	// bracket, or a non-positive accuracy.
	ErrInvalidBracket = errors.New("solver: invalid bracket")
)

// DefaultMaxEvaluations is used when Brent.MaxEvaluations is zero.
const DefaultMaxEvaluations = 100

const (
	epsilon      = 2.220446049250313e-16
	growthFactor = 1.6
)

// Result is a converged root and the number of objective evaluations spent.
type Result struct {
	Root        float64
	Evaluations int
}

// Brent finds roots by inverse quadratic interpolation safeguarded by bisection.
type Brent struct {
	MaxEvaluations int
}

func (b Brent) budget() int {
	if b.MaxEvaluations > 0 {
		return b.MaxEvaluations
	}
	return DefaultMaxEvaluations
}

// Solve finds x in [min, max] with f(x) = 0 to within accuracy in x.
// f(min) and f(max) must have opposite signs and guess must lie inside the
// bracket.
func (b Brent) Solve(f func(float64) float64, accuracy, guess, min, max float64) (Result, error) {
	if !(accuracy > 0) {
		return Result{}, fmt.Errorf("%w: accuracy must be positive, got %g", ErrInvalidBracket, accuracy)
	}
	if !(min < max) {
		return Result{}, fmt.Errorf("%w: min (%g) must be below max (%g)", ErrInvalidBracket, min, max)
	}
	if guess < min || guess > max {
		return Result{}, fmt.Errorf("%w: guess %g outside [%g, %g]", ErrInvalidBracket, guess, min, max)
	}

	fMin := f(min)
	if fMin == 0 {
		return Result{Root: min, Evaluations: 1}, nil
	}
	fMax := f(max)
	if fMax == 0 {
		return Result{Root: max, Evaluations: 2}, nil
	}
	if math.IsNaN(fMin) || math.IsNaN(fMax) || fMin*fMax > 0 {
		return Result{Evaluations: 2}, fmt.Errorf("%w: f(%g) = %g, f(%g) = %g", ErrNotBracketed, min, fMin, max, fMax)
	}
	return b.solve(f, math.Max(accuracy, epsilon), min, fMin, max, fMax, 2)
}

// SolveStep searches outward from guess in geometrically growing steps
// until a sign change is found, then runs Brent on that bracket.
func (b Brent) SolveStep(f func(float64) float64, accuracy, guess, step float64) (Result, error) {
	if !(accuracy > 0) {
		return Result{}, fmt.Errorf("%w: accuracy must be positive, got %g", ErrInvalidBracket, accuracy)
	}
	if !(step > 0) {
		return Result{}, fmt.Errorf("%w: step must be positive, got %g", ErrInvalidBracket, step)
	}

	lo, hi := guess, guess+step
	fLo, fHi := f(lo), f(hi)
	evals := 2
	for evals < b.budget() {
		if fLo == 0 {
			return Result{Root: lo, Evaluations: evals}, nil
		}
		if fHi == 0 {
			return Result{Root: hi, Evaluations: evals}, nil
		}
		if fLo*fHi < 0 {
			return b.solve(f, math.Max(accuracy, epsilon), lo, fLo, hi, fHi, evals)
		}
		if math.Abs(fLo) < math.Abs(fHi) {
			lo += growthFactor * (lo - hi)
			fLo = f(lo)
		} else {
			hi += growthFactor * (hi - lo)
			fHi = f(hi)
		}
		evals++
	}
	return Result{Evaluations: evals}, fmt.Errorf("%w: no sign change found around %g after %d evaluations", ErrMaxEvaluations, guess, evals)
}

// solve runs the Brent iteration on a valid bracket [a, b] with f(a) f(b) < 0.
func (b Brent) solve(f func(float64) float64, accuracy, a, fa, c, fc float64, evals int) (Result, error) {
	budget := b.budget()

	// root is the best estimate; the bracket is [root, c]; a is the previous root.
	root, fRoot := c, fc
	c, fc = a, fa
	var d, e float64
	d = root - a
	e = d

	for evals <= budget {
		if (fRoot > 0 && fc > 0) || (fRoot < 0 && fc < 0) {
			c, fc = a, fa
			d = root - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fRoot) {
			a, fa = root, fRoot
			root, fRoot = c, fc
			c, fc = a, fa
		}

		tol := 2.0*epsilon*math.Abs(root) + 0.5*accuracy
		mid := 0.5 * (c - root)
		if math.Abs(mid) <= tol || fRoot == 0 {
			return Result{Root: root, Evaluations: evals}, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fRoot) {
			var p, q float64
			s := fRoot / fa
			if a == c {
				// secant
				p = 2.0 * mid * s
				q = 1.0 - s
			} else {
				// inverse quadratic interpolation
				qq := fa / fc
				r := fRoot / fc
				p = s * (2.0*mid*qq*(qq-r) - (root-a)*(r-1.0))
				q = (qq - 1.0) * (r - 1.0) * (s - 1.0)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3.0*mid*q - math.Abs(tol*q)
			min2 := math.Abs(e * q)
			if 2.0*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = mid
				e = d
			}
		} else {
			d = mid
			e = d
		}

		a, fa = root, fRoot
		if math.Abs(d) > tol {
			root += d
		} else {
			root += math.Copysign(tol, mid)
		}
		fRoot = f(root)
		evals++
		if math.IsNaN(fRoot) {
			return Result{Root: root, Evaluations: evals}, fmt.Errorf("solver: objective is NaN at %g", root)
		}
	}
	return Result{Root: root, Evaluations: evals}, fmt.Errorf("%w (%d)", ErrMaxEvaluations, budget)
}
