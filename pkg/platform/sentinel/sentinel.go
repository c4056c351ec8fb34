package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Adapters, the dispatcher, and
// stores return these (optionally wrapped) so callers can classify failures
// without string matching.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrRateLimitTimeout: caller gave up waiting for a rate-limit token
// - ErrSourceUnavailable: external source unreachable or misconfigured
// - ErrSourceParse: external source responded with an unexpected shape
// - ErrSource: non-transient source failure, retrying will not help
// - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, missing fields), return plain errors
// from the package that owns the input.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimitTimeout  = errors.New("rate limit timeout")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceParse       = errors.New("source parse error")
	ErrSource            = errors.New("source error")
	ErrInvalidState      = errors.New("invalid state")
	ErrRunFinished       = errors.New("run finished")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Transient reports whether an error is worth retrying at the dispatcher
// boundary. Unreachable sources and malformed responses are both treated as
// transient; a shape change usually clears when the source recovers.
func Transient(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrSourceParse)
}
