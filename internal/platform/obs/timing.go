package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Time returns a deferred-callable that logs the duration of the named
// operation, with the error if one occurred. The logger is taken from the
// context so request-scoped fields (request ID) come along for free.
//
//	defer obs.Time(ctx, "runs.advance")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Warn().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Err(*errp).Msg("op failed")
			return
		}
		log.Debug().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("op done")
	}
}
