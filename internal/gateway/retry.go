package gateway

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// RetryConfig configures retries of transient failures with exponential backoff.
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64
	Jitter     bool // +/-10% random jitter
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// delay returns the wait before retry number attempt+1.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		jitterRange := d * 0.1
		d += (rand.Float64() - 0.5) * 2 * jitterRange
		if d < 0 {
			d = float64(c.BaseDelay)
		}
	}
	return time.Duration(d)
}

// retry runs op until it succeeds, fails permanently or runs out of attempts.
// Cancellation of ctx is observed between attempts only.
func retry(ctx context.Context, cfg RetryConfig, op func(attempt int) error, onRetry func(attempt int, wait time.Duration, err error)) error {
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == cfg.MaxRetries {
			return err
		}
		wait := cfg.delay(attempt)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
	}
	return err
}

var statusPattern = regexp.MustCompile(`non-200 OK status code: (\d{3})`)

// retryableMessages are error fragments GitHub uses for conditions that clear up on their own.
var retryableMessages = []string{
	"rate limit",
	"timeout",
	"timed out",
	"temporary failure",
	"service unavailable",
	"something went wrong while executing your query",
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
}

// classify turns any error from the GraphQL or REST client into a TransportError.
func classify(request string, err error) *domain.TransportError {
	var te *domain.TransportError
	if errors.As(err, &te) {
		return te
	}
	out := &domain.TransportError{Request: request, Message: err.Error(), Err: err}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Transient = true
	case errors.Is(err, context.Canceled):
		out.Transient = false
	case errors.As(err, &rateErr):
		if rateErr.Response != nil {
			out.Status = rateErr.Response.StatusCode
		}
		out.Transient = true
	case errors.As(err, &abuseErr):
		out.Status = http.StatusForbidden
		out.Transient = true
	case errors.As(err, &respErr):
		if respErr.Response != nil {
			out.Status = respErr.Response.StatusCode
		}
		out.Transient = transientStatus(out.Status)
	case errors.As(err, &netErr):
		out.Transient = true
	default:
		if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
			out.Status, _ = strconv.Atoi(m[1])
			out.Transient = transientStatus(out.Status)
		}
	}
	if !out.Transient && out.Status != http.StatusUnauthorized && !errors.Is(err, context.Canceled) {
		msg := strings.ToLower(err.Error())
		for _, fragment := range retryableMessages {
			if strings.Contains(msg, fragment) {
				out.Transient = true
				break
			}
		}
	}
	return out
}

func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
