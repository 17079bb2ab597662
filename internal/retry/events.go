package retry

import "time"

// Event is a structured notification emitted while translating.
type Event interface {
	EventName() string
}

// Observer receives events synchronously. It must not block.
type Observer func(Event)

// RetryScheduled is emitted before sleeping ahead of another attempt.
type RetryScheduled struct {
	Provider string
	Attempt  int // the attempt that failed
	Delay    time.Duration
	Err      error
}

func (RetryScheduled) EventName() string { return "retry_scheduled" }

// CooldownWait is emitted when a call waits out a recent rate limit.
type CooldownWait struct {
	Provider string
	Delay    time.Duration
}

func (CooldownWait) EventName() string { return "cooldown_wait" }

// AttemptFailed is emitted for every failed attempt, retried or not.
type AttemptFailed struct {
	Provider string
	Attempt  int
	Kind     string
	Err      error
}

func (AttemptFailed) EventName() string { return "attempt_failed" }
