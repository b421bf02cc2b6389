package lifecycle

import "context"

// Guard evaluates whether a transition is allowed for the given
// snapshot. All guards on an edge must pass.
type Guard func(ctx context.Context, snap Snapshot, event Event) bool

// Transition defines one legal edge of the lifecycle graph.
type Transition struct {
	From   Status
	To     Status
	Event  Event
	Guards []Guard
}

// Machine is a stateless transition table over subscription statuses.
// It never stores a current state: callers pass a Snapshot of the
// subscription and receive the next status. Uses a nested map for O(1)
// edge lookups: [from][event][]Transition.
type Machine struct {
	transitions map[Status]map[Event][]Transition
}

// New builds a machine from the given transitions.
func New(transitions ...Transition) (*Machine, error) {
	m := &Machine{transitions: make(map[Status]map[Event][]Transition)}
	for _, t := range transitions {
		if !t.From.Valid() || !t.To.Valid() || !t.Event.Valid() {
			return nil, ErrInvalidTransition
		}
		if _, ok := m.transitions[t.From]; !ok {
			m.transitions[t.From] = make(map[Event][]Transition)
		}
		// Multiple edges per from/event stay allowed for guard-based branching
		m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	}
	return m, nil
}

// NewDefault returns a machine over the standard subscription
// transition table.
func NewDefault() *Machine {
	m, err := New(DefaultTransitions()...)
	if err != nil {
		panic(err)
	}
	return m
}

// Fire resolves the next status for the event applied to the snapshot.
// The first edge whose guards all pass wins, which enables priority
// ordering. Illegal calls return ErrNoTransitionAvailable, guard
// failures ErrTransitionRejected.
func (m *Machine) Fire(ctx context.Context, snap Snapshot, event Event) (Status, error) {
	if !event.Valid() {
		return "", ErrInvalidEvent
	}
	if !snap.Status.Valid() {
		return "", ErrInvalidStatus
	}

	edges, ok := m.transitions[snap.Status][event]
	if !ok || len(edges) == 0 {
		return "", NewErrNoTransitionAvailable(snap.Status, event)
	}

	for _, t := range edges {
		if guardsPass(ctx, t, snap, event) {
			return t.To, nil
		}
	}
	return "", NewErrTransitionRejected(snap.Status, event)
}

// CanFire reports whether at least one edge would accept the event.
func (m *Machine) CanFire(ctx context.Context, snap Snapshot, event Event) bool {
	if !event.Valid() || !snap.Status.Valid() {
		return false
	}
	for _, t := range m.transitions[snap.Status][event] {
		if guardsPass(ctx, t, snap, event) {
			return true
		}
	}
	return false
}

func guardsPass(ctx context.Context, t Transition, snap Snapshot, event Event) bool {
	for _, g := range t.Guards {
		if g != nil && !g(ctx, snap, event) {
			return false
		}
	}
	return true
}

// DefaultTransitions encodes the subscription lifecycle graph:
//
//   - activate: pending/trial/inactive -> active, plus an idempotent
//     active -> active self-loop (callers detect the no-op by comparing
//     statuses and skip event emission).
//   - cancel: active/trial -> canceled.
//   - resume: canceled -> active, only while the period is still
//     covered (future ends_at, lifetime, or inside grace).
//   - renew: active/expired/inactive -> active.
//   - expire: forced from every status except canceled (a canceled
//     subscription must be resumed first); lifetime subscriptions are
//     only expirable while a grace window covers them.
func DefaultTransitions() []Transition {
	expirable := func(_ context.Context, snap Snapshot, _ Event) bool {
		return !snap.Lifetime() || snap.InGracePeriod()
	}
	validPeriod := func(_ context.Context, snap Snapshot, _ Event) bool {
		return snap.HasValidPeriod()
	}

	ts := []Transition{
		{From: StatusPending, To: StatusActive, Event: EventActivate},
		{From: StatusTrial, To: StatusActive, Event: EventActivate},
		{From: StatusInactive, To: StatusActive, Event: EventActivate},
		{From: StatusActive, To: StatusActive, Event: EventActivate},

		{From: StatusActive, To: StatusCanceled, Event: EventCancel},
		{From: StatusTrial, To: StatusCanceled, Event: EventCancel},

		{From: StatusCanceled, To: StatusActive, Event: EventResume, Guards: []Guard{validPeriod}},

		{From: StatusActive, To: StatusActive, Event: EventRenew},
		{From: StatusExpired, To: StatusActive, Event: EventRenew},
		{From: StatusInactive, To: StatusActive, Event: EventRenew},
	}

	for _, from := range []Status{StatusPending, StatusTrial, StatusActive, StatusInactive, StatusExpired} {
		ts = append(ts, Transition{From: from, To: StatusExpired, Event: EventExpire, Guards: []Guard{expirable}})
	}
	return ts
}
