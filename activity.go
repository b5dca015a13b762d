package authclient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventPhaseChanged     ActivityEventType = "auth.phase.changed"
	ActivityEventHydrated         ActivityEventType = "auth.hydrated"
	ActivityEventSessionRefreshed ActivityEventType = "auth.session.refreshed"
	ActivityEventSessionUnchanged ActivityEventType = "auth.session.unchanged"
	ActivityEventLoginInitiated   ActivityEventType = "auth.login.initiated"
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventSignOut          ActivityEventType = "auth.signout"
	ActivityEventUnauthorized     ActivityEventType = "auth.unauthorized"
)

// ActivityEvent captures audit-friendly information about a lifecycle
// action.
type ActivityEvent struct {
	ID         string
	EventType  ActivityEventType
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}

// stampEvent fills in the generated fields of an event before recording.
func stampEvent(event ActivityEvent, now func() time.Time) ActivityEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		if now == nil {
			now = time.Now
		}
		event.OccurredAt = now()
	}
	return event
}
