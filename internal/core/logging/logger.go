package logging

import (
	"github.com/rs/zerolog"
)

// Component derives a logger tagged with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("cmp", name).Logger()
}
