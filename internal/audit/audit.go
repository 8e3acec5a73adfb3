package audit

import (
	"context"
	"time"
)

const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionLogout   = "logout"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Entry is one auth decision. Entries are indexed best-effort; a sink
// failure must never fail the request that produced the entry.
type Entry struct {
	Action   string    `json:"action"`
	Username string    `json:"username"`
	Outcome  string    `json:"outcome"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }
