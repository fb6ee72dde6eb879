package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Errorf("Jittered delay %v outside expected range", delay)
		}
		delays[delay] = true
	}

	if len(delays) < 2 {
		t.Error("Expected multiple different delays with jitter, but got consistent delays")
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")
	op := func(ctx context.Context) error {
		attempts++
		return persistent
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Logger:      logger.NewTestLogger(),
	}

	err := Do(context.Background(), op, cfg)
	if !errors.Is(err, persistent) {
		t.Errorf("Expected wrapped persistent error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetrySingleAttemptReturnsErrorUnchanged(t *testing.T) {
	netErr := errs.New(errs.ErrorTypeNetwork, 0, "connection reset")

	err := Do(context.Background(), func(ctx context.Context) error { return netErr }, &Config{MaxAttempts: 1})
	if err != netErr {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	authError := &errs.Error{
		Type:    errs.ErrorTypeAuth,
		Message: "authentication required",
		Code:    401,
	}

	op := func(ctx context.Context) error {
		attempts++
		return authError
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}

	if err := Do(context.Background(), op, cfg); err != authError {
		t.Errorf("Expected auth error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry for auth error), got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 100 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(ctx, op, cfg); err == nil {
		t.Error("Expected error when context cancelled")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"deadline", context.DeadlineExceeded, false},
		{"wrapped deadline in network error", errs.Wrap(errs.ErrorTypeNetwork, context.DeadlineExceeded, "request failed"), false},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, 429, "slow"), true},
		{"not found", errs.New(errs.ErrorTypeNotFound, 404, "gone"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorTypeBackoff(t *testing.T) {
	etb := NewErrorTypeBackoff()

	networkBackoff, ok := etb.GetBackoffForError(errs.ErrorTypeNetwork).(*ExponentialBackoff)
	if !ok {
		t.Fatal("Expected ExponentialBackoff for network errors")
	}
	if networkBackoff.BaseDelay != 500*time.Millisecond {
		t.Errorf("Expected network base delay of 500ms, got %v", networkBackoff.BaseDelay)
	}

	rateLimitBackoff, ok := etb.GetBackoffForError(errs.ErrorTypeRateLimit).(*ExponentialBackoff)
	if !ok {
		t.Fatal("Expected ExponentialBackoff for rate limit errors")
	}
	if rateLimitBackoff.BaseDelay != 5*time.Second {
		t.Errorf("Expected rate limit base delay of 5s, got %v", rateLimitBackoff.BaseDelay)
	}

	partial := &ErrorTypeBackoff{DefaultBackoff: &ConstantBackoff{Delay: time.Millisecond}}
	if d := partial.GetBackoffForError(errs.ErrorTypeServerError).NextDelay(1); d != time.Millisecond {
		t.Errorf("Expected fallback to default backoff, got %v", d)
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.RetryConfig{Enabled: false, MaxAttempts: 5}, nil)
	if cfg.MaxAttempts != 1 {
		t.Errorf("Expected disabled retry to allow a single attempt, got %d", cfg.MaxAttempts)
	}

	cfg = FromSettings(config.DefaultConfig().Retry, logger.NewNopLogger())
	if cfg.MaxAttempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", cfg.MaxAttempts)
	}
	if _, ok := cfg.Backoff.(*ErrorTypeBackoff); !ok {
		t.Error("Expected error-type backoff")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	result, err := DoWithResult(context.Background(), op, cfg)
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Expected nil for zero delay, got %v", err)
	}
}
