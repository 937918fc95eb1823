package authclient

import (
	"context"
	"time"
)

// EventType enumerates lifecycle notifications dispatched to the host page
type EventType string

const (
	EventReady           EventType = "auth-ready"
	EventLogin           EventType = "auth-login"
	EventSignup          EventType = "auth-signup"
	EventLogout          EventType = "auth-logout"
	EventSignupSuccess   EventType = "signup-success"
	EventSignupError     EventType = "signup-error"
	EventInviteValidated EventType = "invite-validated"
	EventInviteInvalid   EventType = "invite-invalid"
)

// Event is a lifecycle notification. Only the fields relevant to Type are set.
type Event struct {
	Type          EventType
	Authenticated bool
	User          *User
	Message       string
	Invite        *Invite
	InvitedBy     *Inviter
	OccurredAt    time.Time
}

// EventSink receives lifecycle notifications
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event Event) error

// Emit implements EventSink.
func (f EventSinkFunc) Emit(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Emit(context.Context, Event) error {
	return nil
}

func normalizeEventSink(s EventSink) EventSink {
	if s == nil {
		return noopEventSink{}
	}
	return s
}

// EmitEvent sends event to sink, stamping OccurredAt when missing. Sink
// failures are logged, emission is best effort.
func EmitEvent(ctx context.Context, sink EventSink, logger Logger, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeEventSink(sink).Emit(ctx, event); err != nil && logger != nil {
		logger.Warn("event sink rejected %s: %v", event.Type, err)
	}
}
