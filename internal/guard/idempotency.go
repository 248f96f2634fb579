// Package guard implements the in-memory safety layer that sits in front of
// trade execution: duplicate suppression, per-user rate limiting, daily
// trade quotas, and the per-trade value ceiling. All guard state is
// process-local and resets on restart; the guarantees are best-effort
// abuse prevention, not durable accounting.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/mcardozo/papertrade/internal/domain"
)

// EntryState is the lifecycle state of an idempotency entry.
type EntryState int

const (
	// StateNone means no live entry exists for the key.
	StateNone EntryState = iota
	StatePending
	StateCompleted
	StateFailed
)

type entry struct {
	key       string
	state     EntryState
	createdAt time.Time
	result    *domain.TradeResult
}

// expiryKey orders entries by creation time for the retention sweep.
type expiryKey struct {
	createdAt time.Time
	key       string
}

func expiryLess(a, b expiryKey) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.key < b.key
}

// Idempotency tracks in-flight and recently completed trade requests keyed
// by a derived fingerprint, so a retried or double-submitted request returns
// the original outcome instead of executing twice. Suppression only holds
// within the retention window; the sweep bounds memory growth, it is not a
// correctness mechanism.
type Idempotency struct {
	bucket    time.Duration
	retention time.Duration
	interval  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	expiry  *btree.BTreeG[expiryKey] // ordered by createdAt ASC for the sweep
}

// NewIdempotency creates a guard that collapses identical requests arriving
// within one fingerprint bucket, retains resolved entries for the given
// retention window, and sweeps expired entries every interval.
func NewIdempotency(bucket, retention, sweepInterval time.Duration) *Idempotency {
	const degree = 32
	return &Idempotency{
		bucket:    bucket,
		retention: retention,
		interval:  sweepInterval,
		entries:   make(map[string]*entry),
		expiry:    btree.NewG[expiryKey](degree, expiryLess),
	}
}

// Fingerprint derives a deterministic key for a trade attempt by bucketing
// now into fixed windows. Identical parameters within one bucket collide to
// the same key; requests spanning a bucket boundary do not. The boundary gap
// is an accepted imprecision.
func (g *Idempotency) Fingerprint(userID, symbol string, side domain.TradeSide, quantity int64, now time.Time) string {
	bucketIdx := now.UnixMilli() / g.bucket.Milliseconds()
	return fmt.Sprintf("%s:%s:%s:%d:%d", userID, symbol, side, quantity, bucketIdx)
}

// CheckResult describes the outcome of a duplicate check.
type CheckResult struct {
	State  EntryState
	Result *domain.TradeResult // cached outcome for completed entries
}

// IsDuplicate reports whether the key is claimed by a live pending or
// completed entry. Failed entries permit a retry.
func (r CheckResult) IsDuplicate() bool {
	return r.State == StatePending || r.State == StateCompleted
}

// Check reports the current state of a key without claiming it. Use Acquire
// on the execution path; a standalone Check followed by MarkPending leaves a
// race window between the two calls.
func (g *Idempotency) Check(key string) CheckResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		return CheckResult{State: StateNone}
	}
	return CheckResult{State: e.state, Result: e.result}
}

// Acquire atomically performs the duplicate check and, when the key is free
// (absent or previously failed), claims it with a pending entry. The check
// and the insert happen under one lock so two concurrent submissions cannot
// both observe "not a duplicate". A StateNone result means the caller now
// owns the key and must resolve it with MarkCompleted or MarkFailed.
func (g *Idempotency) Acquire(key string, now time.Time) CheckResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		switch e.state {
		case StatePending:
			return CheckResult{State: StatePending}
		case StateCompleted:
			return CheckResult{State: StateCompleted, Result: e.result}
		}
		// Failed entry: re-claim in place. Creation time is kept so the
		// retention clock keeps running from the first attempt.
		e.state = StatePending
		e.result = nil
		return CheckResult{State: StateNone}
	}

	g.insertLocked(&entry{key: key, state: StatePending, createdAt: now})
	return CheckResult{State: StateNone}
}

// MarkPending inserts or overwrites an entry in pending state. Prefer
// Acquire on the execution path; MarkPending exists for callers that have
// already established ownership of the key.
func (g *Idempotency) MarkPending(key string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		e.state = StatePending
		e.result = nil
		return
	}
	g.insertLocked(&entry{key: key, state: StatePending, createdAt: now})
}

// MarkCompleted transitions the entry to completed and caches the result
// for future duplicate lookups. No-op if the entry no longer exists.
func (g *Idempotency) MarkCompleted(key string, result *domain.TradeResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		e.state = StateCompleted
		e.result = result
	}
}

// MarkFailed transitions the entry to failed in place, permitting a retry.
// If no entry exists this is a no-op; it never fabricates one.
func (g *Idempotency) MarkFailed(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		e.state = StateFailed
		e.result = nil
	}
}

// Len returns the number of live entries.
func (g *Idempotency) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Start launches a background goroutine that sweeps expired entries at the
// configured interval. It stops when ctx is cancelled.
func (g *Idempotency) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				g.sweep(t)
			}
		}
	}()
}

// sweep purges entries older than the retention window, measured from the
// creation timestamp. The expiry tree is ordered by creation time, so the
// walk stops at the first entry still within retention.
func (g *Idempotency) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.retention)
	var expired []expiryKey
	g.expiry.Ascend(func(k expiryKey) bool {
		if k.createdAt.After(cutoff) {
			return false
		}
		expired = append(expired, k)
		return true
	})

	for _, k := range expired {
		g.expiry.Delete(k)
		delete(g.entries, k.key)
	}
}

// insertLocked adds a fresh entry to both indexes. Caller holds g.mu.
func (g *Idempotency) insertLocked(e *entry) {
	g.entries[e.key] = e
	g.expiry.ReplaceOrInsert(expiryKey{createdAt: e.createdAt, key: e.key})
}
