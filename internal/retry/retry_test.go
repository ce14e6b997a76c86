package retry

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/blinderchief/visiolingua/internal/domain"
)

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testPolicy(rs *recordedSleep) Policy {
	p := RateLimited()
	p.Sleep = rs.sleep
	return p
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	rs := &recordedSleep{}
	calls := 0
	err := testPolicy(rs).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 || len(rs.delays) != 0 {
		t.Fatalf("err=%v calls=%d sleeps=%v", err, calls, rs.delays)
	}
}

func TestDo_RetriesRateLimitWithBackoff(t *testing.T) {
	rs := &recordedSleep{}
	calls := 0
	err := testPolicy(rs).Do(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrRateLimited
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	// no sleep after the last attempt
	if !slices.Equal(rs.delays, []time.Duration{2 * time.Second, 4 * time.Second}) {
		t.Errorf("delays = %v", rs.delays)
	}
}

func TestDo_RecoversAfterRateLimit(t *testing.T) {
	rs := &recordedSleep{}
	calls := 0
	err := testPolicy(rs).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return domain.ErrRateLimited
		}
		return nil
	})
	if err != nil || calls != 2 || len(rs.delays) != 1 {
		t.Fatalf("err=%v calls=%d sleeps=%v", err, calls, rs.delays)
	}
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	rs := &recordedSleep{}
	calls := 0
	err := testPolicy(rs).Do(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrGenerationProviderError
	})
	if !errors.Is(err, domain.ErrGenerationProviderError) || calls != 1 || len(rs.delays) != 0 {
		t.Fatalf("err=%v calls=%d sleeps=%v", err, calls, rs.delays)
	}
}

func TestDo_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	p := RateLimited()
	p.BaseDelay = time.Hour
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return domain.ErrRateLimited
	})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected both cancellation and cause, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_OnRetry(t *testing.T) {
	rs := &recordedSleep{}
	p := testPolicy(rs)
	var attempts []int
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) }

	_ = p.Do(context.Background(), func(context.Context) error { return domain.ErrRateLimited })
	if !slices.Equal(attempts, []int{1, 2}) {
		t.Errorf("OnRetry attempts = %v", attempts)
	}
}

func TestValue(t *testing.T) {
	rs := &recordedSleep{}
	calls := 0
	got, err := Value(context.Background(), testPolicy(rs), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", domain.ErrRateLimited
		}
		return "story", nil
	})
	if err != nil || got != "story" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMaxSleep(t *testing.T) {
	p := RateLimited()
	if p.MaxSleep() != 6*time.Second {
		t.Errorf("MaxSleep = %v, want 6s", p.MaxSleep())
	}
	p.Attempts = 4
	if p.MaxSleep() != 14*time.Second {
		t.Errorf("MaxSleep = %v, want 14s", p.MaxSleep())
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrRateLimited
	})
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}
