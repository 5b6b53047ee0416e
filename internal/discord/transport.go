package discord

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// defaultRetryPad is added to the server-provided delay before retrying.
const defaultRetryPad = time.Second

// rateLimitTransport retries a request once when Discord answers 429.
// A second 429 is handed back to the caller untouched.
type rateLimitTransport struct {
	base  http.RoundTripper
	pad   time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func newRateLimitTransport(base http.RoundTripper, pad time.Duration) *rateLimitTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &rateLimitTransport{
		base:  base,
		pad:   pad,
		sleep: sleepContext,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}

	delay, ok := retryAfter(resp.Header)
	if !ok {
		return resp, nil
	}
	// The body was consumed by the first attempt and cannot be replayed.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := t.sleep(req.Context(), delay+t.pad); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(retry)
}

// retryAfter extracts the server-provided back-off from a 429 response.
// Discord sends X-RateLimit-Reset-After with fractional seconds; Retry-After
// is the generic fallback.
func retryAfter(h http.Header) (time.Duration, bool) {
	for _, name := range []string{"X-RateLimit-Reset-After", "Retry-After"} {
		v := h.Get(name)
		if v == "" {
			continue
		}
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs < 0 {
			continue
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
