package pricing

import "github.com/rs/zerolog"

// sideWrite runs a best-effort persistence step. Failures are logged and
// swallowed so the caller's result is never affected by a write that only
// exists to warm future reads.
func sideWrite(log zerolog.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("write", name).Msg("Best-effort write failed")
	}
}
