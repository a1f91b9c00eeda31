package provider

import (
	"context"
	"errors"
	"fmt"
)

// Every adapter failure wraps exactly one of ErrUnavailable, ErrTimeout or ErrRejected.
var (
	ErrUnavailable           = errors.New("provider unavailable")
	ErrTimeout               = errors.New("provider timeout")
	ErrRejected              = errors.New("provider rejected request")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrMissingCredentials    = fmt.Errorf("%w: missing credentials", ErrUnavailable)
)

func Unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrUnavailable, err)
}

func Timeout(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
}

func Rejected(provider, detail string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrRejected, detail)
}

// Classify reduces an adapter error to a taxonomy label used in logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}

// Normalize makes sure err carries a taxonomy sentinel, mapping bare context
// deadlines to ErrTimeout and anything unrecognised to ErrUnavailable.
func Normalize(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRejected) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Unavailable(provider, err)
}
