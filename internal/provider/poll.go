package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollStatus is the state of an asynchronous upstream job.
type PollStatus int

const (
	PollPending PollStatus = iota
	PollSucceeded
	PollFailed
)

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPoll bounds a job to roughly two minutes.
var DefaultPoll = PollConfig{Interval: time.Second, MaxAttempts: 120}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPoll.Interval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultPoll.MaxAttempts
	}
	return c
}

// Ceiling is the longest Poll can wait before giving up.
func (c PollConfig) Ceiling() time.Duration {
	c = c.withDefaults()
	return time.Duration(c.MaxAttempts) * c.Interval
}

// Poll calls check until it reports a terminal status or the attempt ceiling is
// reached. PollFailed maps to ErrRejected and running out of attempts maps to
// ErrTimeout. A non-nil error from check aborts polling as-is.
func Poll[T any](ctx context.Context, provider string, cfg PollConfig, check func(ctx context.Context) (T, PollStatus, string, error)) (T, error) {
	cfg = cfg.withDefaults()
	var zero T

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, status, detail, err := check(ctx)
		if err != nil {
			return zero, err
		}
		switch status {
		case PollSucceeded:
			return v, nil
		case PollFailed:
			if detail == "" {
				detail = "job failed"
			}
			return zero, Rejected(provider, detail)
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer.Reset(cfg.Interval)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, Timeout(provider, ctx.Err())
			}
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, Timeout(provider, fmt.Errorf("no terminal status after %d polls", cfg.MaxAttempts))
}
