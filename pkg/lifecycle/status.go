package lifecycle

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusTrial    Status = "trial"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTrial, StatusActive, StatusInactive, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// InActiveFamily reports whether the status counts toward the
// one-active-subscription-per-subscriber invariant.
func (s Status) InActiveFamily() bool {
	return s == StatusActive || s == StatusTrial
}

// Terminal reports whether the status is a historical end state that
// time alone never exits. Only explicit resume or renew calls do.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// ActiveFamily returns the statuses counted as active.
func ActiveFamily() []Status {
	return []Status{StatusActive, StatusTrial}
}

// Event represents a lifecycle transition trigger.
type Event string

const (
	EventActivate Event = "activate"
	EventCancel   Event = "cancel"
	EventResume   Event = "resume"
	EventRenew    Event = "renew"
	EventExpire   Event = "expire"
)

// Valid reports whether the event is one of the known values.
func (e Event) Valid() bool {
	switch e {
	case EventActivate, EventCancel, EventResume, EventRenew, EventExpire:
		return true
	}
	return false
}
