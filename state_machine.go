package authclient

// SessionState is the controller lifecycle state
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateInitializing  SessionState = "initializing"
	StateAuthenticated SessionState = "authenticated"
	StateAnonymous     SessionState = "anonymous"
)

// lifecycle guards the session state graph. There is no edge back to
// StateUninitialized. Callers hold the controller lock.
type lifecycle struct {
	current     SessionState
	transitions map[SessionState]map[SessionState]struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		current: StateUninitialized,
		transitions: map[SessionState]map[SessionState]struct{}{
			StateUninitialized: {
				StateInitializing: {},
			},
			StateInitializing: {
				StateAuthenticated: {},
				StateAnonymous:     {},
			},
			StateAuthenticated: {
				StateAnonymous: {},
			},
			StateAnonymous: {
				StateAuthenticated: {},
			},
		},
	}
}

func (l *lifecycle) state() SessionState {
	return l.current
}

func (l *lifecycle) can(target SessionState) bool {
	if target == l.current {
		return true
	}
	_, ok := l.transitions[l.current][target]
	return ok
}

func (l *lifecycle) transition(target SessionState) error {
	if target == l.current {
		return nil
	}
	if !l.can(target) {
		return ErrInvalidSessionTransition.Clone().WithMetadata(map[string]any{
			"from": l.current,
			"to":   target,
		})
	}
	l.current = target
	return nil
}

// settled reports whether initialization has completed
func (l *lifecycle) settled() bool {
	return l.current == StateAuthenticated || l.current == StateAnonymous
}
