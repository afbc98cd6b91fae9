// Package repoerrors declares the typed error taxonomy every repository
// operation surfaces to its caller (spec.md §7).
package repoerrors

import "fmt"

// Kind classifies a repository-layer failure.
type Kind string

const (
	// InvalidInput marks a locally-detected bad request: a missing
	// audit_log_id on update, or a secondary key that cannot be encoded.
	InvalidInput Kind = "invalid_input"
	// EncodingError marks a failure computing the canonical hash.
	EncodingError Kind = "encoding_error"
	// TransactionConsumed marks an attempt to use a session whose
	// transaction slot has already been committed or rolled back.
	TransactionConsumed Kind = "transaction_consumed"
	// ConcurrentUpdate marks a guarded UPDATE that affected zero rows.
	ConcurrentUpdate Kind = "concurrent_update"
	// DatabaseError wraps any other driver-level failure.
	DatabaseError Kind = "database_error"
)

// Error is a typed, wrapping error carrying one Kind from the taxonomy.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err is a repoerrors.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
