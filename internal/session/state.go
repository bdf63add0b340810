package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/pkg/errs"
)

// Status is the lifecycle state of a screening session
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON payloads
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusIdle; c <= StatusFailed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", text)
}

// Policy decides what a submit does while a run is in flight
type Policy int

const (
	// PolicyRejectWhileRunning refuses the submit with ErrBusy
	PolicyRejectWhileRunning Policy = iota
	// PolicySupersede starts a new run; the older response is discarded on arrival
	PolicySupersede
)

func (p Policy) String() string {
	if p == PolicySupersede {
		return "supersede"
	}
	return "reject"
}

// ParsePolicy maps the SESSION_POLICY setting
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyRejectWhileRunning, nil
	case "supersede":
		return PolicySupersede, nil
	default:
		return PolicyRejectWhileRunning, fmt.Errorf("unknown session policy %q", s)
	}
}

// Sentinel errors returned by Submit
var (
	ErrBusy     = errs.New(errs.KindBusy, "Un screening est déjà en cours.")
	ErrStale    = errs.New(errs.KindStale, "screening response superseded by a newer request")
	ErrNotFound = errs.New(errs.KindNotFound, "screening session not found")
)

// ErrorInfo is the user-facing error of a failed run
type ErrorInfo struct {
	Kind    errs.Kind `json:"kind"`
	Message string    `json:"message"`
}

func newErrorInfo(err error) *ErrorInfo {
	return &ErrorInfo{Kind: errs.KindOf(err), Message: err.Error()}
}

// Session is a point-in-time snapshot of a controller.
// Results is nil until a run has ever succeeded and must be treated as read-only.
type Session struct {
	ID          string                  `json:"id"`
	Status      Status                  `json:"status"`
	Token       uint64                  `json:"token"`
	Criteria    *criteria.Criteria      `json:"criteria,omitempty"`
	Results     []contracts.StockResult `json:"results"`
	Err         *ErrorInfo              `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at,omitempty"`
	CompletedAt time.Time               `json:"completed_at,omitempty"`
}

// Running reports whether a request is in flight
func (s Session) Running() bool {
	return s.Status == StatusRunning
}

// HasResults reports whether a result set is displayable
func (s Session) HasResults() bool {
	return s.Results != nil
}
