package lattice

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger routes tree-building diagnostics to l. Per-slice fits are
// logged at debug level, suspicious objectives at warn level.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "lattice").Logger()
}
