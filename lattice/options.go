package lattice

import "github.com/meenmo/shortrate/config"

// Option overrides the active config.Config for a single build.
type Option func(*config.Config)

// WithConfig replaces the whole configuration.
func WithConfig(c config.Config) Option {
	return func(dst *config.Config) { *dst = c }
}

// WithAccuracy sets the root-finder accuracy on theta.
func WithAccuracy(accuracy float64) Option {
	return func(c *config.Config) { c.Accuracy = accuracy }
}

// WithMaxEvaluations sets the per-slice objective evaluation budget.
func WithMaxEvaluations(n int) Option {
	return func(c *config.Config) { c.MaxEvaluations = n }
}

// WithRecenteredBracket searches theta in [theta_{i-1} - width, theta_{i-1} + width],
// clipped to the dynamics' wide bracket.
func WithRecenteredBracket(width float64) Option {
	return func(c *config.Config) {
		c.RecenterBracket = true
		c.RecenterWidth = width
	}
}

// WithFixedBracket searches theta on the dynamics' wide bracket at every slice.
func WithFixedBracket() Option {
	return func(c *config.Config) { c.RecenterBracket = false }
}

// WithClosedForm enables or disables analytic slice fitting.
func WithClosedForm(enabled bool) Option {
	return func(c *config.Config) { c.UseClosedForm = enabled }
}

// WithStrictMonotonicity fails the build when a slice objective is not monotonic.
func WithStrictMonotonicity() Option {
	return func(c *config.Config) { c.StrictMonotonicity = true }
}

func resolve(opts []Option) (config.Config, error) {
	c := config.GetConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c, c.Validate()
}
