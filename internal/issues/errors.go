package issues

import "errors"

// Error categories shared across the source client, the notifier, and the stores.
// Callers classify failures with errors.Is; the concrete cause stays wrapped.
var (
	// ErrTransport is returned when a remote service is unreachable or answers with an unexpected status.
	ErrTransport = errors.New("transport error")

	// ErrAuth is returned when a credential is missing or rejected.
	ErrAuth = errors.New("authentication error")

	// ErrParse is returned when a payload or a timestamp cannot be decoded.
	ErrParse = errors.New("parse error")

	// ErrDataInvariant is returned when the store answers a single-row query with an unexpected row count.
	ErrDataInvariant = errors.New("data invariant violated")

	// ErrPersistence is returned when the store rejects a write.
	ErrPersistence = errors.New("persistence error")
)

// Category returns a short label for the error category of err, used as a log
// and span attribute. Unclassified errors are "unknown".
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrDataInvariant):
		return "data_invariant"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
