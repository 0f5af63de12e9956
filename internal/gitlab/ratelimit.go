package gitlab

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerMinute matches the documented CERN GitLab budget
	DefaultRequestsPerMinute = 300

	rateWindow = time.Minute
)

// SlidingWindowLimiter keeps a log of admission times and admits a request only
// if fewer than ceiling requests were admitted in the trailing window (t-60s, t].
// Waiting callers are delayed, never dropped.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	ceiling  int
	window   time.Duration
	admitted []time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger arbor.ILogger

	saturated rate.Sometimes
}

// LimiterOption configures a SlidingWindowLimiter
type LimiterOption func(*SlidingWindowLimiter)

// WithLimiterLogger sets the logger used for saturation warnings
func WithLimiterLogger(logger arbor.ILogger) LimiterOption {
	return func(l *SlidingWindowLimiter) {
		l.logger = logger
	}
}

// WithLimiterClock replaces the wall clock and the sleep function
func WithLimiterClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(l *SlidingWindowLimiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewSlidingWindowLimiter creates a limiter admitting requestsPerMinute requests
// per rolling minute. A non-positive value falls back to the default budget.
func NewSlidingWindowLimiter(requestsPerMinute int, opts ...LimiterOption) *SlidingWindowLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	l := &SlidingWindowLimiter{
		ceiling:   requestsPerMinute,
		window:    rateWindow,
		admitted:  make([]time.Time, 0, requestsPerMinute),
		now:       time.Now,
		sleep:     sleepContext,
		logger:    arbor.NewLogger(),
		saturated: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ceiling returns the number of requests admitted per window
func (l *SlidingWindowLimiter) Ceiling() int {
	return l.ceiling
}

// Acquire blocks until a request may be sent
func (l *SlidingWindowLimiter) Acquire(ctx context.Context) error {
	_, err := l.acquire(ctx)
	return err
}

// acquire returns the admission timestamp recorded in the log
func (l *SlidingWindowLimiter) acquire(ctx context.Context) (time.Time, error) {
	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}

		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.admitted) < l.ceiling {
			l.admitted = append(l.admitted, now)
			l.mu.Unlock()
			return now, nil
		}
		wait := l.admitted[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		l.saturated.Do(func() {
			l.logger.Warn().
				Int("ceiling", l.ceiling).
				Str("wait", wait.String()).
				Msg("Rate limit saturated, delaying request")
		})

		if err := l.sleep(ctx, wait); err != nil {
			return time.Time{}, err
		}
	}
}

// prune drops admissions that left the window. Caller holds mu.
func (l *SlidingWindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.admitted) && !l.admitted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[i:]...)
	}
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
