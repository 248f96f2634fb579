package guard

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter bounds request frequency per user using a fixed counting window.
// Bursts are possible exactly at window boundaries; that imprecision is
// acceptable for this use case.
type Limiter struct {
	max      int
	window   time.Duration
	interval time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter allowing max requests per user within each
// window, purging expired windows every sweepInterval.
func NewLimiter(max int, windowSize, sweepInterval time.Duration) *Limiter {
	return &Limiter{
		max:      max,
		window:   windowSize,
		interval: sweepInterval,
		windows:  make(map[string]*window),
	}
}

// Allow records a request for userID and reports whether it fits the window
// budget. A fresh or expired window starts at count 1; a denied request does
// not consume budget.
func (l *Limiter) Allow(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[userID]
	if !ok || now.After(w.resetAt) {
		l.windows[userID] = &window{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if w.count < l.max {
		w.count++
		return true
	}
	return false
}

// Start launches a background goroutine that purges expired windows at the
// configured interval. It stops when ctx is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				l.sweep(t)
			}
		}
	}()
}

func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, userID)
		}
	}
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
