package queue_test

import (
	"errors"
	"testing"
	"time"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

func TestPolicyBackoffDoubles(t *testing.T) {
	t.Parallel()

	p := domain.DefaultPolicy()
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestPolicyExhausted(t *testing.T) {
	t.Parallel()

	p := domain.DefaultPolicy()
	if p.Exhausted(2) {
		t.Fatal("did not expect 2 attempts to exhaust the policy")
	}
	if !p.Exhausted(3) {
		t.Fatal("expected 3 attempts to exhaust the policy")
	}
}

func TestParseState(t *testing.T) {
	t.Parallel()

	if s, err := domain.ParseState("delayed"); err != nil || s != domain.StateDelayed {
		t.Fatalf("unexpected result: %s %v", s, err)
	}
	if _, err := domain.ParseState("paused"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
