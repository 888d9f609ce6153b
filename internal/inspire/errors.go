package inspire

import (
	"errors"
	"fmt"
)

// Common errors returned by the INSPIRE client.
var (
	// ErrNotFound indicates the requested record does not exist upstream.
	ErrNotFound = errors.New("not found in INSPIRE")

	// ErrRateLimited indicates the server answered 429 despite local throttling.
	ErrRateLimited = errors.New("INSPIRE rate limit exceeded")

	// ErrReservationRefused indicates the limiter can never admit a request.
	ErrReservationRefused = errors.New("rate limiter: reservation refused")

	// ErrTransport wraps network failures. The client never retries them.
	ErrTransport = errors.New("network error communicating with INSPIRE")

	// ErrMalformedResponse indicates a response body of unexpected shape.
	ErrMalformedResponse = errors.New("malformed response from INSPIRE")

	// ErrPaginationDivergence indicates a paginated query could not be drained
	// to its reported total, typically because the server caps the result
	// window below the number of matches.
	ErrPaginationDivergence = errors.New("pagination diverged from reported total")
)

// APIError represents a non-success HTTP status from the INSPIRE API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("INSPIRE API error (status %d): %s (%s)", e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("INSPIRE API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// DivergenceError carries the counts observed when pagination stopped short.
type DivergenceError struct {
	Query string
	Page  int
	Found int
	Total int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%v: query %q stopped at page %d with %d of %d hits",
		ErrPaginationDivergence, e.Query, e.Page, e.Found, e.Total)
}

func (e *DivergenceError) Unwrap() error {
	return ErrPaginationDivergence
}
