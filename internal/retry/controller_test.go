package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

type scriptedProvider struct {
	name  string
	mu    sync.Mutex
	errs  []error
	text  string
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Submit(ctx context.Context, req translate.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return p.text, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func unavailable() error {
	return &translate.APIError{Provider: "p", StatusCode: 503}
}

func TestDoBackoffSequence(t *testing.T) {
	p := &scriptedProvider{name: "p", errs: []error{unavailable(), unavailable(), unavailable()}}
	rec := &sleepRecorder{}
	c := New(Settings{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}, WithSleeper(rec.sleep))

	_, err := c.Do(context.Background(), p, translate.Request{})
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "p", exhausted.Provider)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, translate.ErrServiceUnavailable)

	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, rec.delays)
	assert.Equal(t, 3, p.calls)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	p := &scriptedProvider{name: "p", errs: []error{translate.ErrEmptyTranslation}, text: "ok"}
	rec := &sleepRecorder{}
	var events []Event
	c := New(Settings{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second},
		WithSleeper(rec.sleep),
		WithObserver(func(e Event) { events = append(events, e) }))

	got, err := c.Do(context.Background(), p, translate.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)

	require.Len(t, events, 2)
	assert.Equal(t, "attempt_failed", events[0].EventName())
	scheduled, ok := events[1].(RetryScheduled)
	require.True(t, ok)
	assert.Equal(t, 1, scheduled.Attempt)
	assert.Equal(t, time.Second, scheduled.Delay)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	c := New(Settings{MaxAttempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Second})
	assert.Equal(t, 2*time.Second, c.BackoffDelay(1))
	assert.Equal(t, 4*time.Second, c.BackoffDelay(2))
	assert.Equal(t, 5*time.Second, c.BackoffDelay(3))
	assert.Equal(t, 5*time.Second, c.BackoffDelay(7))
}

func TestDoNonRetryableGivesUpImmediately(t *testing.T) {
	p := &scriptedProvider{name: "p", errs: []error{errors.New("model required")}}
	rec := &sleepRecorder{}
	c := New(Settings{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}, WithSleeper(rec.sleep))

	_, err := c.Do(context.Background(), p, translate.Request{})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Empty(t, rec.delays)
}

func TestDoCancellationIsNotExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{name: "p", errs: []error{unavailable(), unavailable()}}
	c := New(Settings{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second},
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	_, err := c.Do(ctx, p, translate.Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, p.calls)
}

func TestRateLimitStartsCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cd := NewMemoryCooldown()
	rec := &sleepRecorder{}
	var events []Event

	c := New(Settings{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		WithSleeper(rec.sleep), WithClock(clock), WithCooldown(cd),
		WithObserver(func(e Event) { events = append(events, e) }))

	limited := &scriptedProvider{name: "gemini", errs: []error{&translate.APIError{Provider: "gemini", StatusCode: 429}}}
	_, err := c.Do(context.Background(), limited, translate.Request{})
	require.ErrorIs(t, err, translate.ErrRateLimited)
	assert.Empty(t, rec.delays)

	last, ok, err := cd.LastRateLimited(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, last)

	// a call 30s later waits min(max, base*2)
	now = now.Add(30 * time.Second)
	next := &scriptedProvider{name: "deepseek", text: "ok"}
	_, err = c.Do(context.Background(), next, translate.Request{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
	assert.Contains(t, events, Event(CooldownWait{Provider: "deepseek", Delay: 2 * time.Second}))

	// outside the window no wait happens
	now = now.Add(31 * time.Second)
	_, err = c.Do(context.Background(), &scriptedProvider{name: "deepseek", text: "ok"}, translate.Request{})
	require.NoError(t, err)
	assert.Len(t, rec.delays, 1)
}

func TestCooldownDelayCapped(t *testing.T) {
	c := New(Settings{MaxAttempts: 3, BaseDelay: 10 * time.Second, MaxDelay: 15 * time.Second})
	assert.Equal(t, 15*time.Second, c.CooldownDelay())
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
