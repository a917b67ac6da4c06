package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the lattice calibration and root-finding parameters.
type Config struct {
	// Accuracy is the absolute x-accuracy handed to the Brent solver when
	// fitting the per-slice shift.
	Accuracy float64 `mapstructure:"accuracy"`

	// MaxEvaluations is the objective evaluation budget per slice.
	// Exhausting it aborts the whole tree build.
	MaxEvaluations int `mapstructure:"max_evaluations"`

	// RecenterBracket re-centers the root-find bracket on the previous
	// slice's fitted value instead of using the model's wide bracket.
	RecenterBracket bool `mapstructure:"recenter_bracket"`

	// RecenterWidth is the half-width of the re-centered bracket.
	RecenterWidth float64 `mapstructure:"recenter_width"`

	// UseClosedForm lets additive dynamics fit a slice analytically.
	UseClosedForm bool `mapstructure:"use_closed_form"`

	// StrictMonotonicity turns a non-monotonic objective on the bracket
	// into a calibration failure instead of a warning.
	StrictMonotonicity bool `mapstructure:"strict_monotonicity"`

	// MonotonicitySamples is the number of points at which the objective is
	// sampled on the bracket after each slice. Zero disables the check.
	MonotonicitySamples int `mapstructure:"monotonicity_samples"`

	// ProbabilityTolerance is the slack allowed below 0 and above 1 before a
	// branching probability is reported as degenerate.
	ProbabilityTolerance float64 `mapstructure:"probability_tolerance"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Accuracy:             1e-7,
	MaxEvaluations:       1000,
	RecenterBracket:      false,
	RecenterWidth:        1.0,
	UseClosedForm:        true,
	StrictMonotonicity:   false,
	MonotonicitySamples:  16,
	ProbabilityTolerance: 1e-14,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case !(c.Accuracy > 0):
		return fmt.Errorf("%w: accuracy must be positive, got %g", ErrInvalidConfig, c.Accuracy)
	case c.MaxEvaluations <= 0:
		return fmt.Errorf("%w: max_evaluations must be positive, got %d", ErrInvalidConfig, c.MaxEvaluations)
	case !(c.RecenterWidth > 0):
		return fmt.Errorf("%w: recenter_width must be positive, got %g", ErrInvalidConfig, c.RecenterWidth)
	case c.MonotonicitySamples < 0 || c.MonotonicitySamples == 1 || c.MonotonicitySamples == 2:
		return fmt.Errorf("%w: monotonicity_samples must be 0 or at least 3, got %d", ErrInvalidConfig, c.MonotonicitySamples)
	case c.ProbabilityTolerance < 0:
		return fmt.Errorf("%w: probability_tolerance must be non-negative, got %g", ErrInvalidConfig, c.ProbabilityTolerance)
	}
	return nil
}

// Load reads a configuration file (YAML, JSON or TOML, chosen by extension)
// on top of DefaultConfig. Environment variables prefixed with SHORTRATE_
// override both, e.g. SHORTRATE_MAX_EVALUATIONS=2000. An empty path reads
// the environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHORTRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("accuracy", DefaultConfig.Accuracy)
	v.SetDefault("max_evaluations", DefaultConfig.MaxEvaluations)
	v.SetDefault("recenter_bracket", DefaultConfig.RecenterBracket)
	v.SetDefault("recenter_width", DefaultConfig.RecenterWidth)
	v.SetDefault("use_closed_form", DefaultConfig.UseClosedForm)
	v.SetDefault("strict_monotonicity", DefaultConfig.StrictMonotonicity)
	v.SetDefault("monotonicity_samples", DefaultConfig.MonotonicitySamples)
	v.SetDefault("probability_tolerance", DefaultConfig.ProbabilityTolerance)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
