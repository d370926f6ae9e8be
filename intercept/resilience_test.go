package intercept

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/wirekit/errors"
)

// flakyTarget fails the first n calls.
type flakyTarget struct {
	failures int
	calls    int
	err      error
}

func (f *flakyTarget) Fetch(ctx context.Context) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	f := &flakyTarget{failures: 2, err: errors.New("connection reset")}
	p, err := For("mailer").Reflect(f).Use(Retry(RetryPolicy{InitialBackoff: time.Millisecond})).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out, err := Call[string](context.Background(), p, "Fetch")
	if err != nil || out != "ok" {
		t.Fatalf("expected ok, got %q, %v", out, err)
	}
	if f.calls != 3 {
		t.Errorf("expected 3 calls, got %d", f.calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	f := &flakyTarget{failures: 10, err: errors.New("connection reset")}
	p, _ := For("mailer").Reflect(f).Use(Retry(RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond})).Build()

	if _, err := p.Invoke(context.Background(), "Fetch"); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 2 {
		t.Errorf("expected 2 calls, got %d", f.calls)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	f := &flakyTarget{failures: 10, err: apperrors.InvalidInput("to", "missing")}
	p, _ := For("mailer").Reflect(f).Use(Retry(RetryPolicy{InitialBackoff: time.Millisecond})).Build()

	if _, err := p.Invoke(context.Background(), "Fetch"); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Errorf("expected a single call for a non-retryable error, got %d", f.calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	f := &flakyTarget{failures: 10, err: errors.New("connection reset")}
	p, _ := For("mailer").Reflect(f).Use(Retry(RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour})).Build()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Invoke(ctx, "Fetch")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if f.calls != 1 {
		t.Errorf("expected 1 call, got %d", f.calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("plain"), true},
		{context.Canceled, false},
		{apperrors.Timeout("send"), true},
		{apperrors.InvalidInput("to", "missing"), false},
	}
	for _, tc := range tests {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("Retryable(%v) = %v, expected %v", tc.err, got, tc.want)
		}
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}.withDefaults()
	if d := p.backoff(1); d != time.Second {
		t.Errorf("expected 1s, got %s", d)
	}
	if d := p.backoff(2); d != 2*time.Second {
		t.Errorf("expected 2s, got %s", d)
	}
	if d := p.backoff(5); d != 3*time.Second {
		t.Errorf("expected cap of 3s, got %s", d)
	}
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []string
	b := NewBreaker(BreakerConfig{
		MaxFailures: 2,
		CoolDown:    time.Minute,
		OnStateChange: func(target string, from, to BreakerState) {
			transitions = append(transitions, target+":"+from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }

	f := &flakyTarget{failures: 2, err: errors.New("connection reset")}
	p, _ := For("mailer").Reflect(f).Use(b).Build()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := p.Invoke(ctx, "Fetch"); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	_, err := p.Invoke(ctx, "Fetch")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if f.calls != 2 {
		t.Errorf("open breaker must not reach the target, got %d calls", f.calls)
	}

	now = now.Add(time.Minute)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open after cool-down, got %s", b.State())
	}
	if out, err := Call[string](ctx, p, "Fetch"); err != nil || out != "ok" {
		t.Fatalf("expected trial call to succeed, got %q, %v", out, err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}

	want := []string{"mailer:closed->open", "mailer:open->half-open", "mailer:half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker(BreakerConfig{MaxFailures: 1, CoolDown: time.Second})
	b.now = func() time.Time { return now }

	f := &flakyTarget{failures: 5, err: errors.New("down")}
	p, _ := For("mailer").Reflect(f).Use(b).Build()

	_, _ = p.Invoke(context.Background(), "Fetch")
	now = now.Add(time.Second)
	_, _ = p.Invoke(context.Background(), "Fetch")
	if b.State() != BreakerOpen {
		t.Errorf("expected failed trial to reopen, got %s", b.State())
	}
}
