package server

import (
	"fmt"
	"sync"
	"time"
)

// Rate limit windows.
const (
	WindowMinute = "minute"
	WindowHour   = "hour"
)

// RateLimiter counts requests per client over sliding one minute and one
// hour windows.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int

	clients map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter. A zero limit disables that window.
func NewRateLimiter(requestsPerMinute, requestsPerHour int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		clients:           make(map[string][]time.Time),
		now:               time.Now,
	}
}

// Allow records a request from clientID, or returns a *RateLimitError when
// a window is full. Rejected requests are not recorded.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	horizon := time.Minute
	if rl.requestsPerHour > 0 {
		horizon = time.Hour
	}
	seen := prune(rl.clients[clientID], now.Add(-horizon))

	if err := rl.check(seen, now, WindowMinute, rl.requestsPerMinute, time.Minute); err != nil {
		rl.clients[clientID] = seen
		return err
	}
	if err := rl.check(seen, now, WindowHour, rl.requestsPerHour, time.Hour); err != nil {
		rl.clients[clientID] = seen
		return err
	}
	rl.clients[clientID] = append(seen, now)
	return nil
}

// check reports an error when limit requests already fall inside window.
// seen is sorted oldest first.
func (rl *RateLimiter) check(seen []time.Time, now time.Time, name string, limit int, window time.Duration) error {
	if limit <= 0 {
		return nil
	}
	cutoff := now.Add(-window)
	inside := 0
	first := now
	for i := len(seen) - 1; i >= 0 && seen[i].After(cutoff); i-- {
		inside++
		first = seen[i]
	}
	if inside < limit {
		return nil
	}
	return &RateLimitError{
		Type:       name,
		Limit:      limit,
		RetryAfter: first.Add(window).Sub(now),
	}
}

// Usage returns how many requests clientID made in the last minute.
func (rl *RateLimiter) Usage(clientID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-time.Minute)
	n := 0
	for _, t := range rl.clients[clientID] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Cleanup drops clients with no request in the last hour.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-time.Hour)
	for id, seen := range rl.clients {
		if len(seen) == 0 || !seen[len(seen)-1].After(cutoff) {
			delete(rl.clients, id)
		}
	}
}

func prune(seen []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(seen) && !seen[i].After(cutoff) {
		i++
	}
	return seen[i:]
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // WindowMinute or WindowHour
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter.Round(time.Second))
}
