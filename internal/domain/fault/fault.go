package fault

import "errors"

// Kind classifies engine errors into the four families callers are expected
// to branch on. Individual failure reasons are sentinel values declared in
// the domain package that owns them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStateConflict
	KindNotFound
	KindUnavailable
)

// String returns the kind name used in logs and HTTP payloads.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified engine error. Sentinels built with New compare by
// identity under errors.Is, so wrapped errors still match their reason.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

// New creates a classified sentinel error. Code is a stable machine-readable
// reason (e.g. "room_full"); msg is the human-readable form.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// KindOf walks the error chain and returns the kind of the first classified
// error, or KindUnknown when none is found.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// CodeOf returns the machine-readable reason of the first classified error
// in the chain, or "" when none is found.
func CodeOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
