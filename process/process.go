// Package process defines the one-dimensional diffusions a trinomial
// lattice discretizes.
//
// A Diffusion follows dx = Drift(t,x) dt + Diffusion(t,x) dW. Lattice
// construction only uses the conditional moments Expectation and Variance
// over one step, and requires Variance to be independent of x.
package process

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned by constructors for out-of-range parameters.
var ErrInvalidParameter = errors.New("process: invalid parameter")

// Diffusion is a one-dimensional Ito process.
type Diffusion interface {
	X0() float64
	Drift(t, x float64) float64
	Diffusion(t, x float64) float64
	// Expectation is E[x_{t+dt} | x_t = x].
	Expectation(t, x, dt float64) float64
	// Variance is Var[x_{t+dt} | x_t = x].
	Variance(t, x, dt float64) float64
}

// OrnsteinUhlenbeck follows dx = Speed (Level - x) dt + Volatility dW and
// uses its exact conditional moments.
type OrnsteinUhlenbeck struct {
	speed      float64
	volatility float64
	level      float64
	x0         float64
}

// NewOrnsteinUhlenbeck validates speed >= 0 and volatility > 0.
func NewOrnsteinUhlenbeck(speed, volatility, x0, level float64) (*OrnsteinUhlenbeck, error) {
	if !(speed >= 0) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("%w: speed must be non-negative, got %g", ErrInvalidParameter, speed)
	}
	if !(volatility > 0) || math.IsInf(volatility, 0) {
		return nil, fmt.Errorf("%w: volatility must be positive, got %g", ErrInvalidParameter, volatility)
	}
	return &OrnsteinUhlenbeck{speed: speed, volatility: volatility, level: level, x0: x0}, nil
}

func (p *OrnsteinUhlenbeck) X0() float64 { return p.x0 }

func (p *OrnsteinUhlenbeck) Speed() float64 { return p.speed }

func (p *OrnsteinUhlenbeck) Volatility() float64 { return p.volatility }

func (p *OrnsteinUhlenbeck) Level() float64 { return p.level }

func (p *OrnsteinUhlenbeck) Drift(_, x float64) float64 {
	return p.speed * (p.level - x)
}

func (p *OrnsteinUhlenbeck) Diffusion(_, _ float64) float64 {
	return p.volatility
}

func (p *OrnsteinUhlenbeck) Expectation(_, x, dt float64) float64 {
	return p.level + (x-p.level)*math.Exp(-p.speed*dt)
}

func (p *OrnsteinUhlenbeck) Variance(_, _, dt float64) float64 {
	// below this speed the exponential form loses all precision
	if p.speed < math.Sqrt(epsilon) {
		return p.volatility * p.volatility * dt
	}
	return 0.5 * p.volatility * p.volatility / p.speed * (1.0 - math.Exp(-2.0*p.speed*dt))
}

// SquareRoot is the process followed by y = sqrt(r) when r is a
// Cox-Ingersoll-Ross short rate dr = k (theta - r) dt + sigma sqrt(r) dW.
// By Ito, dy = ((k theta / 2 - sigma^2 / 8) / y - k y / 2) dt + sigma / 2 dW,
// whose diffusion coefficient no longer depends on the state.
type SquareRoot struct {
	speed float64
	mean  float64
	sigma float64
	y0    float64
}

// NewSquareRoot builds the helper process from the CIR parameters and the
// initial short rate r0 > 0.
func NewSquareRoot(speed, mean, sigma, r0 float64) (*SquareRoot, error) {
	if !(speed > 0) {
		return nil, fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidParameter, speed)
	}
	if !(mean > 0) {
		return nil, fmt.Errorf("%w: mean must be positive, got %g", ErrInvalidParameter, mean)
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: sigma must be positive, got %g", ErrInvalidParameter, sigma)
	}
	if !(r0 > 0) {
		return nil, fmt.Errorf("%w: initial rate must be positive, got %g", ErrInvalidParameter, r0)
	}
	return &SquareRoot{speed: speed, mean: mean, sigma: sigma, y0: math.Sqrt(r0)}, nil
}

func (p *SquareRoot) X0() float64 { return p.y0 }

func (p *SquareRoot) Drift(_, y float64) float64 {
	return (0.5*p.mean*p.speed-0.125*p.sigma*p.sigma)/y - 0.5*p.speed*y
}

func (p *SquareRoot) Diffusion(_, _ float64) float64 {
	return 0.5 * p.sigma
}

// Expectation is the Euler step y + Drift dt.
func (p *SquareRoot) Expectation(t, y, dt float64) float64 {
	return y + p.Drift(t, y)*dt
}

func (p *SquareRoot) Variance(t, y, dt float64) float64 {
	s := p.Diffusion(t, y)
	return s * s * dt
}

const epsilon = 2.220446049250313e-16
