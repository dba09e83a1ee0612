package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweetpotato0/scholarly/message"
)

type countingClient struct {
	calls    int
	failures int
	response string
}

func (c *countingClient) Generate(ctx context.Context, msgs []*message.Message) (*message.Message, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("backend unavailable")
	}
	return message.Assistant(c.response), nil
}

type namedMiddleware struct {
	name  string
	order *[]string
}

func (m *namedMiddleware) Name() string { return m.name }

func (m *namedMiddleware) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name+":before")
	err := next(ctx)
	*m.order = append(*m.order, m.name+":after")
	return err
}

func TestChainExecutesInOrder(t *testing.T) {
	order := []string{}

	chain := NewChain(
		&namedMiddleware{name: "m1", order: &order},
		&namedMiddleware{name: "m2", order: &order},
	)

	ctx := NewContext(context.Background(), "writer", nil)
	err := chain.Execute(ctx, func(c *Context) error {
		order = append(order, "final")
		return nil
	})
	if err != nil {
		t.Fatalf("chain execute failed: %v", err)
	}

	want := []string{"m1:before", "m2:before", "final", "m2:after", "m1:after"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestWrapWithoutMiddlewareReturnsInner(t *testing.T) {
	inner := &countingClient{response: "ok"}
	client := Wrap(inner, "writer")

	resp, err := client.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("expected response ok, got %q", resp.Text())
	}
}

func TestRetryRecoversAfterOneFailure(t *testing.T) {
	inner := &countingClient{failures: 1, response: "recovered"}
	client := Wrap(inner, "writer", NewRetry(1, time.Millisecond))

	resp, err := client.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected retry to recover, got error: %v", err)
	}
	if resp.Text() != "recovered" {
		t.Fatalf("expected response 'recovered', got %q", resp.Text())
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 calls (initial + retry), got %d", inner.calls)
	}
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	inner := &countingClient{failures: 10}
	client := Wrap(inner, "critic", NewRetry(1, time.Millisecond))

	_, err := client.Generate(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 2 {
		t.Fatalf("expected exactly 2 calls (one retry), got %d", inner.calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := &countingClient{failures: 10}
	client := Wrap(inner, "planner", NewRetry(3, 50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, nil)
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 call before cancellation stopped retries, got %d", inner.calls)
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	inner := &countingClient{response: "ok"}
	interval := 30 * time.Millisecond
	client := Wrap(inner, "writer", NewRateLimiter(interval))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Generate(context.Background(), nil); err != nil {
			t.Fatalf("generate %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// Three calls need at least two full intervals between them.
	if elapsed < 2*interval {
		t.Fatalf("expected at least %v elapsed, got %v", 2*interval, elapsed)
	}
}

func TestCallLoggerPassesThrough(t *testing.T) {
	inner := &countingClient{response: "logged"}
	client := Wrap(inner, "critic", NewCallLogger())

	resp, err := client.Generate(context.Background(), []*message.Message{message.User("q")})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text() != "logged" {
		t.Fatalf("expected response 'logged', got %q", resp.Text())
	}
}
