package inspire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Transport issues HTTP requests through a RateLimiter and logs each one.
// It never retries; a failed request is reported to the caller as is.
type Transport struct {
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewTransport creates a transport. Nil arguments are replaced by defaults.
func NewTransport(hc *http.Client, limiter *RateLimiter, logger *slog.Logger) *Transport {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if limiter == nil {
		limiter = NewRateLimiter(DefaultMinInterval, DefaultPollInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{httpClient: hc, limiter: limiter, logger: logger}
}

// Do waits for a rate limiter slot, then sends req.
func (t *Transport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	t.logger.Info("querying inspire",
		"url", req.URL.String(),
		"accept", req.Header.Get("Accept"))

	resp, err := t.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}
