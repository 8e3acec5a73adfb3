package events

import (
	"context"
	"time"
)

const (
	TypeUserRegistered = "user_registered"
	TypeUserLoggedIn   = "user_logged_in"
	TypeUserLoggedOut  = "user_logged_out"
)

type Event struct {
	Type     string    `json:"type"`
	Username string    `json:"username"`
	UserID   uint      `json:"user_id,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher is used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
