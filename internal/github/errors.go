package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v66/github"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindAPI         Kind = "github_api_error"
	KindParse       Kind = "parse_error"
)

// Error is returned by every Client method that talks to GitHub.
// Status is 0 for network failures that happened before any response.
type Error struct {
	Kind       Kind
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
		}
		return "rate limited"
	case KindParse:
		return "parse error: " + e.Message
	default:
		if e.Status == 0 {
			return "github request failed: " + e.Message
		}
		return fmt.Sprintf("github api error (%d): %s", e.Status, e.Message)
	}
}

// IsRateLimited reports whether err is a rate limit failure.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRateLimited
}

// classify maps a go-github failure onto Error. Context cancellation is
// returned unchanged so callers can tell abandonment apart from API failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		e := &Error{Kind: KindRateLimited, Status: statusOf(rle.Response), Message: rle.Message}
		if !rle.Rate.Reset.IsZero() {
			e.RetryAfter = max(time.Until(rle.Rate.Reset.Time), 0)
		}
		return e
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		e := &Error{Kind: KindRateLimited, Status: statusOf(abuse.Response), Message: abuse.Message}
		if abuse.RetryAfter != nil {
			e.RetryAfter = *abuse.RetryAfter
		}
		return e
	}

	var resp *gh.ErrorResponse
	if errors.As(err, &resp) {
		status := statusOf(resp.Response)
		if status == http.StatusForbidden || status == http.StatusTooManyRequests {
			return &Error{
				Kind:       KindRateLimited,
				Status:     status,
				Message:    resp.Message,
				RetryAfter: retryAfterHeader(resp.Response),
			}
		}
		return &Error{Kind: KindAPI, Status: status, Message: resp.Message}
	}

	return &Error{Kind: KindAPI, Status: 0, Message: err.Error()}
}

func statusOf(r *http.Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}

func retryAfterHeader(r *http.Response) time.Duration {
	if r == nil {
		return 0
	}
	v := r.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
