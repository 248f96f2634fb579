package guard

import (
	"sync"
	"time"
)

type dayCount struct {
	date  string
	count int
}

// DailyQuota bounds the number of completed trades per user per UTC calendar
// day. The reset is a date comparison, not an elapsed-time one: crossing
// midnight resets the quota regardless of exact elapsed seconds.
type DailyQuota struct {
	max int

	mu     sync.Mutex
	counts map[string]*dayCount
}

// NewDailyQuota creates a quota allowing max completed trades per day.
func NewDailyQuota(max int) *DailyQuota {
	return &DailyQuota{
		max:    max,
		counts: make(map[string]*dayCount),
	}
}

// CheckLimit reports whether userID may trade today and how many trades
// remain. A new day is observed here but not committed: the counter only
// advances when Increment is called after a trade completes (lazy reset).
func (q *DailyQuota) CheckLimit(userID string, now time.Time) (allowed bool, remaining int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := dateKey(now)
	c, ok := q.counts[userID]
	if !ok || c.date != today {
		return true, q.max
	}
	remaining = q.max - c.count
	return remaining > 0, remaining
}

// Increment records one completed trade for userID. Call only after the
// trade has been committed.
func (q *DailyQuota) Increment(userID string, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := dateKey(now)
	c, ok := q.counts[userID]
	if !ok || c.date != today {
		q.counts[userID] = &dayCount{date: today, count: 1}
		return
	}
	c.count++
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
