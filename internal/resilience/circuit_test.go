package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sells-group/grounding-cli/internal/config"
)

func fail(_ context.Context) (int, error) { return 0, errors.New("fail") }
func pass(_ context.Context) (int, error) { return 1, nil }

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker("example.com", DefaultBreakerConfig())

	val, err := Call(context.Background(), b, pass)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 1 {
		t.Errorf("expected 1, got %d", val)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = Call(context.Background(), b, fail)
	}
	if b.State() != CircuitOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	_, err := Call(context.Background(), b, func(_ context.Context) (int, error) {
		t.Error("should not be called when circuit is open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, pass)
	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, fail)

	if b.State() != CircuitClosed {
		t.Errorf("expected closed since failures were not consecutive, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 2, ResetTimeout: 100 * time.Millisecond})
	b.nowFunc = func() time.Time { return now }

	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, fail)
	if b.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	b.nowFunc = func() time.Time { return now.Add(200 * time.Millisecond) }
	if b.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", b.State())
	}

	if _, err := Call(context.Background(), b, pass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 1, ResetTimeout: 100 * time.Millisecond})
	b.nowFunc = func() time.Time { return now }

	_, _ = Call(context.Background(), b, fail)

	later := now.Add(200 * time.Millisecond)
	b.nowFunc = func() time.Time { return later }
	_, _ = Call(context.Background(), b, fail)

	if b.State() != CircuitOpen {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}
}

func TestBreaker_ContextCancellationNotCounted(t *testing.T) {
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, b, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, cancellation must not trip the breaker; got %s", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	type change struct {
		key      string
		from, to CircuitState
	}
	var changes []change
	b := NewBreaker("a.example", BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(key string, from, to CircuitState) {
			changes = append(changes, change{key, from, to})
		},
	})

	_, _ = Call(context.Background(), b, fail)

	if len(changes) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(changes))
	}
	if changes[0] != (change{"a.example", CircuitClosed, CircuitOpen}) {
		t.Errorf("unexpected transition %+v", changes[0])
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = Call(context.Background(), b, fail)
				return
			}
			_, _ = Call(context.Background(), b, pass)
		}()
	}
	wg.Wait()
}

func TestHostBreakers_GetOrCreate(t *testing.T) {
	hb := NewHostBreakers(DefaultBreakerConfig())

	b1 := hb.Get("a.example")
	b2 := hb.Get("a.example")
	b3 := hb.Get("b.example")

	if b1 != b2 {
		t.Error("expected same breaker for same host")
	}
	if b1 == b3 {
		t.Error("expected different breakers for different hosts")
	}
}

func TestHostBreakers_States(t *testing.T) {
	hb := NewHostBreakers(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})

	_, _ = Call(context.Background(), hb.Get("down.example"), fail)
	_ = hb.Get("up.example")

	states := hb.States()
	if states["down.example"] != CircuitOpen {
		t.Errorf("expected down.example=open, got %s", states["down.example"])
	}
	if states["up.example"] != CircuitClosed {
		t.Errorf("expected up.example=closed, got %s", states["up.example"])
	}
}

func TestBreakerFrom(t *testing.T) {
	cfg := BreakerFrom(config.BreakerConfig{FailureThreshold: 2, ResetTimeoutSecs: 7})
	if cfg.FailureThreshold != 2 {
		t.Errorf("expected 2, got %d", cfg.FailureThreshold)
	}
	if cfg.ResetTimeout != 7*time.Second {
		t.Errorf("expected 7s, got %v", cfg.ResetTimeout)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
