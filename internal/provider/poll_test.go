package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollReturnsOnSuccess(t *testing.T) {
	calls := 0
	got, err := Poll(context.Background(), "replicate", PollConfig{Interval: time.Millisecond, MaxAttempts: 10},
		func(context.Context) (string, PollStatus, string, error) {
			calls++
			if calls < 3 {
				return "", PollPending, "", nil
			}
			return "https://cdn.example/out.wav", PollSucceeded, "", nil
		})
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got != "https://cdn.example/out.wav" {
		t.Fatalf("Poll() = %q", got)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPollFailedMapsToRejected(t *testing.T) {
	_, err := Poll(context.Background(), "replicate", PollConfig{Interval: time.Millisecond, MaxAttempts: 10},
		func(context.Context) (int, PollStatus, string, error) {
			return 0, PollFailed, "CUDA out of memory", nil
		})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("error = %v, want ErrRejected", err)
	}
}

func TestPollCeilingMapsToTimeout(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), "assemblyai", PollConfig{Interval: time.Millisecond, MaxAttempts: 4},
		func(context.Context) (int, PollStatus, string, error) {
			calls++
			return 0, PollPending, "", nil
		})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
}

func TestPollStopsOnContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Poll(ctx, "replicate", PollConfig{Interval: time.Hour, MaxAttempts: 5},
		func(context.Context) (int, PollStatus, string, error) {
			return 0, PollPending, "", nil
		})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Poll() did not yield to context deadline")
	}
}

func TestPollCeiling(t *testing.T) {
	if got := DefaultPoll.Ceiling(); got != 120*time.Second {
		t.Fatalf("DefaultPoll.Ceiling() = %v, want 2m", got)
	}
}
