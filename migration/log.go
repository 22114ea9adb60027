package migration

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the migration package's structured logger. The teacher's server
// logs with bare fmt.Printf; migrations run for minutes to hours and span
// two nodes, so every line here carries the job name as a field to let an
// operator grep one migration's whole history out of a shared log stream.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("component", "migration").Logger()

// WithJob returns a logger pre-populated with this job's name and role,
// for use at every state-transition and failure call site.
func WithJob(name JobName, role Role) zerolog.Logger {
	return Log.With().Str("job", string(name)).Str("role", role.String()).Logger()
}
