package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

// ErrExhausted is matched by every *ExhaustedError.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError is returned once a provider gives up on a request,
// either after the last allowed attempt or on a non-retryable failure.
type ExhaustedError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Settings bounds the attempts and delays of one controller.
type Settings struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Controller runs single provider calls with bounded exponential backoff and a
// shared rate-limit cooldown.
type Controller struct {
	settings Settings
	cooldown Cooldown
	sleep    Sleeper
	now      func() time.Time
	observer Observer
	logger   zerolog.Logger
}

// Option customizes the controller.
type Option func(*Controller)

// WithCooldown overrides the rate-limit tracker (defaults to a process-local one).
func WithCooldown(cd Cooldown) Option {
	return func(c *Controller) {
		if cd != nil {
			c.cooldown = cd
		}
	}
}

// WithSleeper overrides how delays are waited out (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver receives RetryScheduled, CooldownWait and AttemptFailed events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// New builds a controller. MaxAttempts below 1 is treated as 1.
func New(settings Settings, opts ...Option) *Controller {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	c := &Controller{
		settings: settings,
		cooldown: NewMemoryCooldown(),
		sleep:    SleepContext,
		now:      time.Now,
		logger:   logging.Component("retry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settings returns the controller's bounds.
func (c *Controller) Settings() Settings {
	return c.settings
}

// Do submits req to p until it succeeds or the attempts run out.
// Cancellation of ctx is returned as is, never as an ExhaustedError.
func (c *Controller) Do(ctx context.Context, p translate.Provider, req translate.Request) (string, error) {
	if err := c.waitCooldown(ctx, p.Name()); err != nil {
		return "", err
	}

	schedule := c.schedule()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := p.Submit(ctx, req)
		if err == nil {
			return text, nil
		}

		kind := translate.Classify(err)
		if kind == translate.KindCanceled {
			return "", err
		}
		c.emit(AttemptFailed{Provider: p.Name(), Attempt: attempt, Kind: kind.String(), Err: err})

		if kind == translate.KindRateLimited {
			if merr := c.cooldown.MarkRateLimited(ctx, c.now()); merr != nil {
				c.logger.Warn().Err(merr).Msg("failed to record rate limit")
			}
		}

		if !kind.Retryable() || attempt >= c.settings.MaxAttempts {
			return "", &ExhaustedError{Provider: p.Name(), Attempts: attempt, Err: err}
		}

		delay := c.capDelay(schedule.NextBackOff())
		c.logger.Warn().
			Str("provider", p.Name()).
			Int("attempt", attempt).
			Int("max_attempts", c.settings.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("attempt failed, retrying")
		c.emit(RetryScheduled{Provider: p.Name(), Attempt: attempt, Delay: delay, Err: err})

		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// BackoffDelay is the wait after failed attempt n (1-based):
// min(MaxDelay, BaseDelay*2^(n-1)).
func (c *Controller) BackoffDelay(attempt int) time.Duration {
	schedule := c.schedule()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = schedule.NextBackOff()
	}
	return c.capDelay(d)
}

// CooldownDelay is the wait applied to calls starting inside the cooldown window.
func (c *Controller) CooldownDelay() time.Duration {
	return c.capDelay(2 * c.settings.BaseDelay)
}

func (c *Controller) waitCooldown(ctx context.Context, provider string) error {
	last, ok, err := c.cooldown.LastRateLimited(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read rate limit state")
		return nil
	}
	if !ok || c.now().Sub(last) >= CooldownWindow {
		return nil
	}

	delay := c.CooldownDelay()
	c.logger.Info().Str("provider", provider).Dur("delay", delay).Msg("recent rate limit, cooling down")
	c.emit(CooldownWait{Provider: provider, Delay: delay})
	return c.sleep(ctx, delay)
}

func (c *Controller) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.settings.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.settings.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = 24 * time.Hour
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *Controller) capDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if c.settings.MaxDelay > 0 && d > c.settings.MaxDelay {
		return c.settings.MaxDelay
	}
	return d
}

func (c *Controller) emit(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}

// SleepContext waits for d unless ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
