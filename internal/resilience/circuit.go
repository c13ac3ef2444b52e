package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single trial request through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s State) gauge() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}

// window counts outcomes observed while the breaker is closed.
type window struct {
	failures  int
	successes int
}

func (w *window) record(success bool) {
	if success {
		w.successes++
		return
	}
	w.failures++
}

func (w window) total() int { return w.failures + w.successes }

func (w window) failureRatio() float64 {
	if w.total() == 0 {
		return 0
	}
	return float64(w.failures) / float64(w.total())
}

// halve keeps the ratio while bounding the counters, rounding up so a lone
// failure is not forgotten.
func (w *window) halve() {
	w.failures = (w.failures + 1) / 2
	w.successes = (w.successes + 1) / 2
}

// Breaker guards one upstream API, usually the Fincra checkout endpoint. It
// opens once at least minRequests outcomes have been seen and the failure
// ratio reaches the threshold, rejects calls for openFor, then admits a trial
// call whose outcome closes or reopens it.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       window
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker constructs a closed breaker. Out-of-range settings fall back to
// one request, a 50% ratio and a 30s cool-off.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// Allow reports whether a request may go upstream. An open breaker whose
// cool-off has elapsed moves to half-open and admits the caller as its trial.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if b.now().Sub(b.openedAt) < b.openFor {
		return false
	}
	b.transitionLocked(ctx, HalfOpen)
	return true
}

// RetryAfter returns how long an open breaker keeps rejecting calls.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return 0
	}
	remaining := b.openFor - b.now().Sub(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.window.record(success)
	if b.window.total() < b.minRequests {
		return
	}
	if b.window.failureRatio() >= b.failureRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	if b.window.total() > b.minRequests*2 {
		b.window.halve()
	}
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WithTarget names the guarded dependency in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishStateLocked()
	return b
}

// WithLogger sets the logger used when the request context carries none.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	observed := b.window
	b.state = next
	b.window = window{}
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.publishStateLocked()
	if prev == next {
		return
	}

	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	b.logTransition(ctx, prev, next, observed)
}

func (b *Breaker) logTransition(ctx context.Context, from, to State, observed window) {
	logger := b.loggerFor(ctx)
	var evt *zerolog.Event
	var msg string
	switch {
	case to == Open && from == HalfOpen:
		evt = logger.Warn().Dur("open_for", b.openFor)
		msg = "upstream still failing, circuit reopened"
	case to == Open:
		evt = logger.Warn().
			Int("failures", observed.failures).
			Int("requests", observed.total()).
			Float64("failure_ratio", observed.failureRatio()).
			Dur("open_for", b.openFor)
		msg = "upstream circuit opened"
	case to == HalfOpen:
		evt = logger.Info()
		msg = "upstream circuit half-open, sending trial request"
	default:
		evt = logger.Info()
		msg = "upstream circuit closed"
	}
	evt = evt.Str("target", b.targetLabel()).Str("from_state", from.String()).Str("to_state", to.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg(msg)
}

func (b *Breaker) publishStateLocked() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.targetLabel()).Set(b.state.gauge())
	}
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

// loggerFor prefers the request-scoped logger; zerolog.Ctx hands back a
// disabled logger when the context carries none.
func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger
	}
	return &b.logger
}
