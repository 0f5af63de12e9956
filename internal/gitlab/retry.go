package gitlab

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls how failed requests are retried.
// The delay before attempt n (n >= 2) is BaseDelay * Multiplier^(n-2),
// scaled by a random factor in [1-JitterFraction, 1+JitterFraction] and
// capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	Multiplier        float64
	JitterFraction    float64
	MaxDelay          time.Duration
	RetryableStatuses map[int]bool
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		Multiplier:     2,
		JitterFraction: 0.2,
		MaxDelay:       30 * time.Second,
		RetryableStatuses: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

// IsRetryableStatus reports whether an HTTP status should be retried
func (p RetryPolicy) IsRetryableStatus(status int) bool {
	return p.RetryableStatuses[status]
}

// Delay returns the wait before attempt n. random must return a value in [0, 1).
func (p RetryPolicy) Delay(attempt int, random func() float64) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-2))
	if p.JitterFraction > 0 && random != nil {
		d *= 1 + p.JitterFraction*(2*random()-1)
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// normalize fills zero fields from the default policy
func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		p.JitterFraction = def.JitterFraction
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.RetryableStatuses == nil {
		p.RetryableStatuses = def.RetryableStatuses
	}
	return p
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
