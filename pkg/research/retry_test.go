package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var testPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2.0}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), testPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errors.New("timeout"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q, want %q", out, "ok")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryFatalAbortsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), testPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, Fatal(errors.New("bad credentials"))
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fatal must not retry)", calls)
	}
	if !IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
}

func TestRetryExhaustionCarriesLastError(t *testing.T) {
	last := errors.New("rate limited")
	calls := 0
	_, err := Retry(context.Background(), testPolicy, func(ctx context.Context) (int, error) {
		calls++
		if calls < testPolicy.MaxAttempts {
			return 0, Transient(errors.New("earlier failure"))
		}
		return 0, Transient(last)
	})
	if calls != testPolicy.MaxAttempts {
		t.Fatalf("calls = %d, want %d", calls, testPolicy.MaxAttempts)
	}
	if !errors.Is(err, last) {
		t.Errorf("exhaustion error does not wrap last underlying error: %v", err)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("error should name the attempt count: %v", err)
	}
}

func TestRetryUnmarkedErrorIsRetried(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), testPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	if err != nil || out != "ok" {
		t.Fatalf("got (%q, %v), want recovery on second attempt", out, err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, Multiplier: 2.0}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient(errors.New("flaky"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}
