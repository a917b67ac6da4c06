package model

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger routes calibration diagnostics to l.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "model").Logger()
}
