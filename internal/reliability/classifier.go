package reliability

import "time"

// IsRetryableHTTPStatus classifies retryable HTTP status codes. A retryable
// status means another provider may succeed; the request itself was valid.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsClientError reports a non-retryable 4xx.
func IsClientError(code int) bool {
	return code >= 400 && code < 500 && !IsRetryableHTTPStatus(code)
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
