package server

import (
	"fmt"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Operation labels used in failure reports.
const (
	OpListen    = "listen"
	OpAccept    = "accept"
	OpHandshake = "handshake"
	OpRead      = "read"
	OpWrite     = "write"
	OpRateLimit = "ratelimit"
)

// Reporter receives one call per non-benign failure, carrying the label of
// the operation that failed and the underlying transport error. Expected
// peer closure is never reported.
//
// The reporter is injected into both the listener and every session so tests
// can swap it out and assert on the failure kinds that were observed.
type Reporter interface {
	Failure(op string, err error)
}

type logReporter struct {
	log zerolog.Logger
}

// NewLogReporter returns a Reporter writing one error line per failure
// through the given zerolog logger.
func NewLogReporter(l zerolog.Logger) Reporter {
	return &logReporter{log: l}
}

func (r *logReporter) Failure(op string, err error) {
	r.log.Error().Str("op", op).Err(err).Msg("operation failed")
}

func log() zerolog.Logger {
	return zlog.Logger
}

// SetupError reports a failure to open, bind or listen on the configured
// endpoint. It is fatal to startup: the listener never starts accepting and
// the error is returned to the caller instead of being retried.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
