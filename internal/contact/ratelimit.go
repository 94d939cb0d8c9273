package contact

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/kv"
)

// Rate limit policy.
const (
	Cooldown    = 30 * time.Second
	MaxAttempts = 5
	Window      = time.Hour
)

// Keys under which a client's counters are stored, as string-encoded
// integers.
const (
	keyLastSubmission = "lastSubmission"
	keyAttempts       = "attempts"
	keyWindowReset    = "windowReset"
)

// RateLimitState is the persisted per-client counter set. Times are
// Unix epoch milliseconds.
type RateLimitState struct {
	LastSubmission int64
	Attempts       int64
	WindowReset    int64
}

// Decision is the outcome of a rate limit check. Message and
// RetryAfter are set only when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Message    string
}

// Evaluate applies the policy to state at now. A window whose reset
// time has passed counts as zero attempts.
func Evaluate(state RateLimitState, now time.Time) Decision {
	nowMs := now.UnixMilli()

	if state.LastSubmission > 0 {
		elapsed := time.Duration(nowMs-state.LastSubmission) * time.Millisecond
		if elapsed < Cooldown {
			wait := min(Cooldown-elapsed, Cooldown)
			seconds := ceilUnits(wait, time.Second)
			return Decision{
				RetryAfter: wait,
				Message:    fmt.Sprintf("Please wait %d %s before sending another message.", seconds, plural(seconds, "second")),
			}
		}
	}

	if nowMs <= state.WindowReset && state.Attempts >= MaxAttempts {
		wait := time.Duration(state.WindowReset-nowMs) * time.Millisecond
		minutes := ceilUnits(wait, time.Minute)
		return Decision{
			RetryAfter: wait,
			Message:    fmt.Sprintf("Too many messages sent. Please try again in %d %s.", minutes, plural(minutes, "minute")),
		}
	}

	return Decision{Allowed: true}
}

// Advance returns the state after a successful submission at now.
func (s RateLimitState) Advance(now time.Time) RateLimitState {
	nowMs := now.UnixMilli()
	if nowMs > s.WindowReset {
		return RateLimitState{
			LastSubmission: nowMs,
			Attempts:       1,
			WindowReset:    nowMs + Window.Milliseconds(),
		}
	}
	return RateLimitState{
		LastSubmission: nowMs,
		Attempts:       s.Attempts + 1,
		WindowReset:    s.WindowReset,
	}
}

// ceilUnits rounds d up to whole units, never below one.
func ceilUnits(d, unit time.Duration) int64 {
	n := int64((d + unit - 1) / unit)
	if n < 1 {
		n = 1
	}
	return n
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Limiter enforces the policy over counters held in a kv.Store, one
// key set per client.
type Limiter struct {
	store kv.Store
	clock clock.Clock

	// mu serializes Record's read-modify-write within this process.
	mu sync.Mutex
}

func NewLimiter(store kv.Store, clk clock.Clock) *Limiter {
	return &Limiter{store: store, clock: clk}
}

func stateKey(clientID, name string) string {
	return clientID + ":" + name
}

// Load reads the client's counters. Missing or unparseable values read
// as zero.
func (l *Limiter) Load(ctx context.Context, clientID string) (RateLimitState, error) {
	var state RateLimitState
	fields := []struct {
		name string
		dest *int64
	}{
		{keyLastSubmission, &state.LastSubmission},
		{keyAttempts, &state.Attempts},
		{keyWindowReset, &state.WindowReset},
	}
	for _, f := range fields {
		raw, found, err := l.store.Get(ctx, stateKey(clientID, f.name))
		if err != nil {
			return RateLimitState{}, fmt.Errorf("reading %s: %w", f.name, err)
		}
		if !found {
			continue
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			*f.dest = n
		}
	}
	return state, nil
}

// Save writes the client's counters.
func (l *Limiter) Save(ctx context.Context, clientID string, state RateLimitState) error {
	values := map[string]int64{
		keyLastSubmission: state.LastSubmission,
		keyAttempts:       state.Attempts,
		keyWindowReset:    state.WindowReset,
	}
	for name, v := range values {
		if err := l.store.Set(ctx, stateKey(clientID, name), strconv.FormatInt(v, 10)); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// Check decides whether clientID may submit now. It does not modify
// the counters.
func (l *Limiter) Check(ctx context.Context, clientID string) (Decision, error) {
	state, err := l.Load(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(state, l.clock.Now()), nil
}

// Record advances the client's counters after an acknowledged write.
func (l *Limiter) Record(ctx context.Context, clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.Load(ctx, clientID)
	if err != nil {
		return err
	}
	return l.Save(ctx, clientID, state.Advance(l.clock.Now()))
}
