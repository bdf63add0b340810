// Package errs defines the error taxonomy shared by the screening client.
//
// Every error raised by the gateway, the criteria store or the session
// controller carries a Kind so that callers (CLI, BFF handlers) can decide how
// to present it without string matching. Nothing here is fatal: each kind is
// recoverable by a user-initiated retry.
package errs

import (
	"errors"
)

// Kind classifies an error for presentation
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: criteria out of bounds or malformed, never sent to the network
	KindValidation
	// KindNetwork: request could not complete (connectivity or non-2xx status)
	KindNetwork
	// KindBusy: a screening run is already in flight for this session
	KindBusy
	// KindStale: the response belonged to a superseded request token
	KindStale
	// KindNotConfirmed: a destructive action was attempted without confirmation
	KindNotConfirmed
	// KindNotFound: unknown page session or record
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindBusy:
		return "busy"
	case KindStale:
		return "stale"
	case KindNotConfirmed:
		return "not_confirmed"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its string name in JSON payloads
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindUnknown; c <= KindNotFound; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	*k = KindUnknown
	return nil
}

// Kinded is implemented by errors that know their own kind
type Kinded interface {
	Kind() Kind
}

// Error is a minimal kinded error used for sentinels
type Error struct {
	kind Kind
	msg  string
}

// New creates a kinded sentinel error
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the error classification
func (e *Error) Kind() Kind { return e.kind }

// KindOf walks the wrap chain and returns the first kind found.
// Joined errors report the kind of their first kinded member.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
