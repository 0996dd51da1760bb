package github

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// lowQuotaThreshold is the remaining request count below which a warning is
// logged.
const lowQuotaThreshold = 100

// Quota is the rate limit state reported with a GitHub API response.
type Quota struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// QuotaFrom extracts rate limit information from a go-github response.
// It returns nil when the response carries no rate limit headers.
func QuotaFrom(resp *gogithub.Response) *Quota {
	if resp == nil || (resp.Rate.Limit == 0 && resp.Rate.Remaining == 0 && resp.Rate.Reset.IsZero()) {
		return nil
	}
	return &Quota{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}

// Low reports whether the remaining quota is below the warning threshold.
func (q *Quota) Low() bool {
	if q == nil {
		return false
	}
	return q.Remaining < lowQuotaThreshold
}

// ResetIn returns how long until the quota resets, or zero if it already has.
func (q *Quota) ResetIn() time.Duration {
	if q == nil {
		return 0
	}
	d := time.Until(q.Reset)
	if d < 0 {
		return 0
	}
	return d
}

// warnIfLow logs a warning when resp shows the quota running out.
func warnIfLow(logger *slog.Logger, resp *gogithub.Response) {
	q := QuotaFrom(resp)
	if !q.Low() {
		return
	}
	logger.Warn("GitHub API quota running low",
		"remaining", q.Remaining,
		"limit", q.Limit,
		"reset_in", q.ResetIn().Round(time.Second).String(),
	)
}

// describeError adds rate limit context to errors returned by go-github.
func describeError(op string, err error) error {
	var rle *gogithub.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("%s: rate limited until %s: %w", op, rle.Rate.Reset.Time.Format(time.RFC3339), err)
	}
	var arle *gogithub.AbuseRateLimitError
	if errors.As(err, &arle) {
		return fmt.Errorf("%s: secondary rate limit (retry after %s): %w", op, arle.GetRetryAfter(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
