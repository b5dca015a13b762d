package authclient

import (
	"context"
	"sync"
	"time"
)

// Phase identifies where the session lifecycle currently stands.
type Phase string

const (
	PhaseUninitialized       Phase = "uninitialized"
	PhaseHydrating           Phase = "hydrating"
	PhaseNoSession           Phase = "no_session"
	PhasePendingVerification Phase = "pending_verification"
	PhaseAuthenticated       Phase = "authenticated"
	PhaseUnauthenticated     Phase = "unauthenticated"
)

// LifecycleOption customizes lifecycle construction.
type LifecycleOption func(*Lifecycle)

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithLifecycleActivitySink sets the ActivitySink notified on each
// transition.
func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.sink = normalizeActivitySink(sink)
	}
}

// WithLifecycleLogger overrides the logger used for sink failures.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Lifecycle tracks the phase of the session bootstrap and enforces the
// allowed transitions. Hydrating is never re-entered once left; the only
// way back from authenticated is unauthenticated, on explicit logout or a
// detected 401.
type Lifecycle struct {
	mu          sync.Mutex
	phase       Phase
	transitions map[Phase]map[Phase]struct{}
	now         func() time.Time
	sink        ActivitySink
	logger      Logger
}

// NewLifecycle returns a lifecycle in the uninitialized phase.
func NewLifecycle(opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		phase: PhaseUninitialized,
		transitions: map[Phase]map[Phase]struct{}{
			PhaseUninitialized: {
				PhaseHydrating: {},
			},
			PhaseHydrating: {
				PhaseNoSession:           {},
				PhasePendingVerification: {},
			},
			PhaseNoSession: {
				PhaseUnauthenticated: {},
				PhaseAuthenticated:   {},
			},
			PhasePendingVerification: {
				PhaseAuthenticated:   {},
				PhaseUnauthenticated: {},
			},
			PhaseAuthenticated: {
				PhaseUnauthenticated: {},
			},
			PhaseUnauthenticated: {
				PhaseAuthenticated: {},
			},
		},
		now:    time.Now,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Transition moves the lifecycle to target. Transitioning to the current
// phase is a no-op.
func (l *Lifecycle) Transition(ctx context.Context, target Phase) error {
	l.mu.Lock()
	from := l.phase

	if target == "" {
		l.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target phase is empty",
		})
	}

	if from == target {
		l.mu.Unlock()
		return nil
	}

	if !l.canTransition(from, target) {
		l.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	l.phase = target
	l.mu.Unlock()

	l.record(ctx, ActivityEvent{
		EventType: ActivityEventPhaseChanged,
		Metadata: map[string]any{
			"from": string(from),
			"to":   string(target),
		},
	})

	return nil
}

func (l *Lifecycle) canTransition(from, to Phase) bool {
	if allowed, ok := l.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (l *Lifecycle) record(ctx context.Context, event ActivityEvent) {
	event = stampEvent(event, l.now)

	sink := normalizeActivitySink(l.sink)
	if err := sink.Record(ctx, event); err != nil {
		l.logger.Warn("lifecycle activity sink error: %v", err)
	}
}
