// Package errorkind classifies pipeline errors by the retry/skip/abort policy
// they carry, independent of where they originate (adapter fetch, normalizer,
// resolver, merge writer, search client).
package errorkind

import "errors"

type Kind string

const (
	NetworkTimeout    Kind = "network_timeout"
	RateLimited       Kind = "rate_limited"
	SourceUnavailable Kind = "source_unavailable"
	ParseError        Kind = "parse_error"
	ValidationError   Kind = "validation_error"
	UnknownCity       Kind = "unknown_city"
	ConflictOnMerge   Kind = "conflict_on_merge"
	DatabaseError     Kind = "database_error"
	SearchIndexError  Kind = "search_index_error"
)

// Error wraps an underlying error with a classification the orchestrator's
// retry loop and run-report aggregation can branch on.
type Error struct {
	Kind  Kind
	cause error
}

func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e == nil || e.cause == nil {
		return string(e.safeKind())
	}
	return string(e.safeKind()) + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) safeKind() Kind {
	if e == nil || e.Kind == "" {
		return DatabaseError
	}
	return e.Kind
}

// Retriable reports whether the orchestrator's backoff loop should retry the
// operation that produced this error, per the policy table.
func (e *Error) Retriable() bool {
	switch e.safeKind() {
	case NetworkTimeout, RateLimited, SourceUnavailable:
		return true
	default:
		return false
	}
}

// AdvancesCursor reports whether a source's last_fetch_at cursor may advance
// after an error of this kind.
func (e *Error) AdvancesCursor() bool {
	switch e.safeKind() {
	case SourceUnavailable, DatabaseError:
		return false
	default:
		return true
	}
}

// KindOf extracts the classification from err if it (or something it wraps)
// is an *Error; otherwise it reports DatabaseError, the conservative default
// for an error this package did not originate.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.safeKind()
	}
	return DatabaseError
}

// Retriable reports whether err should be retried under the backoff policy,
// even when err was not produced by this package.
func Retriable(err error) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Retriable()
	}
	return false
}

// AdvancesCursor reports whether a source's last_fetch_at cursor may advance
// after err, even when err was not produced by this package (an
// unclassified error is conservatively treated as cursor-blocking).
func AdvancesCursor(err error) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.AdvancesCursor()
	}
	return false
}
