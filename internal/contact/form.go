package contact

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/logging"
)

// DisplayDelay is how long the Submitted state stays on display before
// the form returns to Idle.
const DisplayDelay = 5 * time.Second

// WriteTimeout bounds a single document store write.
const WriteTimeout = 15 * time.Second

// Status is the form's UI state.
type Status int

const (
	StatusIdle Status = iota
	StatusValidating
	StatusInvalid
	StatusRateLimited
	StatusSubmitting
	StatusSubmitted
	StatusFailed
)

var statusNames = [...]string{
	StatusIdle:        "idle",
	StatusValidating:  "validating",
	StatusInvalid:     "invalid",
	StatusRateLimited: "rate_limited",
	StatusSubmitting:  "submitting",
	StatusSubmitted:   "submitted",
	StatusFailed:      "failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// State is the status together with the payload that status carries:
// field errors for Invalid, a banner Notice for RateLimited, Submitted
// and Failed, and RetryAfter for RateLimited.
type State struct {
	Status     Status
	Errors     FieldErrors
	Notice     string
	RetryAfter time.Duration
}

// RetryAfterSeconds is RetryAfter rounded up to whole seconds, at
// least one. Used for the Retry-After header.
func (s State) RetryAfterSeconds() int64 {
	return ceilUnits(s.RetryAfter, time.Second)
}

func idle() State { return State{Status: StatusIdle} }

func invalid(errs FieldErrors) State {
	return State{Status: StatusInvalid, Errors: errs}
}

func rateLimited(d Decision) State {
	return State{Status: StatusRateLimited, Notice: d.Message, RetryAfter: d.RetryAfter}
}

func failed() State { return State{Status: StatusFailed, Notice: MessageFailed} }

func submitted() State { return State{Status: StatusSubmitted, Notice: MessageSent} }

// Snapshot is a copy of a form's values and state, safe to render.
type Snapshot struct {
	Values Input
	State  State
}

// Busy reports whether the submit control should be disabled.
func (s Snapshot) Busy() bool {
	return s.State.Status == StatusSubmitting || s.State.Status == StatusSubmitted
}

// Deps are the collaborators shared by every Form.
type Deps struct {
	Limiter *Limiter
	Sink    Sink
	Clock   clock.Clock
	Logger  *logging.Logger
}

// Form holds one client's contact form.
type Form struct {
	clientID string
	deps     Deps

	mu     sync.Mutex
	values Input
	state  State
	revert clock.Timer
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return d
}

func NewForm(clientID string, deps Deps) *Form {
	return &Form{clientID: clientID, deps: deps.withDefaults(), state: idle()}
}

// Snapshot returns the current values and state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	state := f.state
	if state.Errors != nil {
		state.Errors = maps.Clone(state.Errors)
	}
	return Snapshot{Values: f.values, State: state}
}

// Edit updates one field. It clears that field's error and moves a
// Failed form back to Idle.
func (f *Form) Edit(field, value string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case FieldName:
		f.values.Name = value
	case FieldEmail:
		f.values.Email = value
	case FieldMessage:
		f.values.Message = value
	default:
		return f.snapshotLocked(), ErrUnknownField
	}

	switch f.state.Status {
	case StatusFailed:
		f.state = idle()
	case StatusInvalid:
		delete(f.state.Errors, field)
		if len(f.state.Errors) == 0 {
			f.state = idle()
		}
	}
	return f.snapshotLocked(), nil
}

// Submit runs the whole flow for in: validation, the rate limit check,
// then one write to the sink. Validation, rate limit and write failures
// are reported through the returned state, not as errors. Once the
// write starts it is not cancelled by ctx.
func (f *Form) Submit(ctx context.Context, in Input, userAgent string) (Snapshot, error) {
	f.mu.Lock()
	switch f.state.Status {
	case StatusSubmitting:
		defer f.mu.Unlock()
		return f.snapshotLocked(), ErrSubmissionInFlight
	case StatusSubmitted:
		defer f.mu.Unlock()
		return f.snapshotLocked(), ErrRecentlySubmitted
	}

	f.values = in
	f.state = State{Status: StatusValidating}

	if errs := in.Validate(); len(errs) > 0 {
		f.state = invalid(errs)
		defer f.mu.Unlock()
		return f.snapshotLocked(), nil
	}

	decision, err := f.deps.Limiter.Check(ctx, f.clientID)
	if err != nil {
		f.deps.Logger.Error("Rate limit check failed for %s: %v", f.clientID, err)
		f.state = failed()
		defer f.mu.Unlock()
		return f.snapshotLocked(), nil
	}
	if !decision.Allowed {
		f.state = rateLimited(decision)
		defer f.mu.Unlock()
		return f.snapshotLocked(), nil
	}

	f.state = State{Status: StatusSubmitting, Notice: MessageSending}
	doc := NewDocument(in, userAgent)
	f.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WriteTimeout)
	defer cancel()
	err = f.deps.Sink.Create(writeCtx, Collection, doc)

	// Counters are written without the lock. The form stays Submitting
	// until they are done.
	if err == nil {
		if err := f.deps.Limiter.Record(writeCtx, f.clientID); err != nil {
			f.deps.Logger.Warn("Failed to record submission for %s: %v", f.clientID, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.deps.Logger.Error("Failed to store contact message from %s: %v", f.clientID, err)
		f.state = failed()
		return f.snapshotLocked(), nil
	}

	f.deps.Logger.Info("Contact message stored for %s", f.clientID)
	f.values = Input{}
	f.state = submitted()
	f.revert = f.deps.Clock.AfterFunc(DisplayDelay, f.revertSubmitted)
	return f.snapshotLocked(), nil
}

func (f *Form) revertSubmitted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status == StatusSubmitted {
		f.state = idle()
	}
	f.revert = nil
}

// Close cancels a pending revert timer.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revert != nil {
		f.revert.Stop()
		f.revert = nil
	}
}
