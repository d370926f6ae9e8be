package intercept

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	apperrors "github.com/kbukum/wirekit/errors"
)

// RetryPolicy configures the Retry interceptor.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Defaults to 3.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt. Defaults to 100ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay. Defaults to 10s.
	MaxBackoff time.Duration
	// Factor multiplies the delay after each attempt. Defaults to 2.
	Factor float64
	// Jitter randomizes each delay by up to this fraction (0 to 1).
	Jitter float64
	// RetryIf decides whether err is worth another attempt. Defaults to Retryable.
	RetryIf func(err error) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 100 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2
	}
	if p.RetryIf == nil {
		p.RetryIf = Retryable
	}
	return p
}

// backoff returns the delay after the given 1-based attempt.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.Factor, float64(attempt-1))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if d < 0 {
		d = float64(p.InitialBackoff)
	}
	return time.Duration(d)
}

// Retryable reports whether err may succeed on another attempt. An AppError
// decides through its Retryable flag; context errors never retry; anything
// else does.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return true
}

// Retry calls the inner handler again while it fails with a retryable error,
// sleeping with exponential backoff in between. The last error is returned.
func Retry(policy RetryPolicy) Interceptor {
	policy = policy.withDefaults()
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (any, error) {
		var lastErr error
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := next(ctx, inv)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if !policy.RetryIf(err) || attempt == policy.MaxAttempts {
				break
			}

			timer := time.NewTimer(policy.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		return nil, lastErr
	})
}

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cool-down passes.
	BreakerOpen
	// BreakerHalfOpen lets a limited number of trial calls through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures opens the circuit after this many consecutive failures. Defaults to 5.
	MaxFailures int
	// CoolDown is how long the circuit stays open. Defaults to 30s.
	CoolDown time.Duration
	// TrialCalls is how many calls a half-open circuit lets through. Defaults to 1.
	TrialCalls int
	// OnStateChange is called with the proxy target on every transition.
	OnStateChange func(target string, from, to BreakerState)
}

// Breaker is a circuit breaker shared by every method of one proxy. While
// open it fails calls with SERVICE_UNAVAILABLE without reaching the target.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu         sync.Mutex
	state      BreakerState
	failures   int
	successes  int
	trials     int
	openedAt   time.Time
	lastTarget string
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.TrialCalls <= 0 {
		cfg.TrialCalls = 1
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Intercept implements Interceptor.
func (b *Breaker) Intercept(ctx context.Context, inv *Invocation, next Handler) (any, error) {
	if !b.allow(inv.Target) {
		return nil, apperrors.Unavailable(inv.Target).WithDetail("method", inv.Method)
	}
	out, err := next(ctx, inv)
	b.record(err)
	return out, err
}

func (b *Breaker) allow(target string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastTarget = target

	switch b.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trials < b.cfg.TrialCalls {
			b.trials++
			return true
		}
	}
	return false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if err == nil {
		switch state {
		case BreakerClosed:
			b.failures = 0
		case BreakerHalfOpen:
			b.successes++
			if b.successes >= b.cfg.TrialCalls {
				b.to(BreakerClosed)
			}
		}
		return
	}

	b.failures++
	if state == BreakerHalfOpen || b.failures >= b.cfg.MaxFailures {
		b.openedAt = b.now()
		b.to(BreakerOpen)
	}
}

// current moves an open breaker to half-open once the cool-down passed.
// The caller holds b.mu.
func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.CoolDown {
		b.to(BreakerHalfOpen)
	}
	return b.state
}

func (b *Breaker) to(state BreakerState) {
	if b.state == state {
		return
	}
	from := b.state
	b.state = state
	b.trials, b.successes = 0, 0
	if state == BreakerClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.lastTarget, from, state)
	}
}
