package mind

import (
	"sync"
	"time"
)

// Ledger limits. Sweeps only run once the ledger grows past
// DefaultLedgerMaxEntries.
const (
	DefaultLedgerMaxEntries = 5000
	DefaultLedgerRetention  = 24 * time.Hour
)

const neverInteracted = int64(365 * 24 * time.Hour / time.Millisecond)

type ledgerKey struct {
	channelID   string
	counterpart string
	identityID  string
}

// Ledger remembers when an identity last replied to a counterpart in a
// channel. Safe for concurrent use.
type Ledger struct {
	mu         sync.Mutex
	entries    map[ledgerKey]time.Time
	maxEntries int
	retention  time.Duration
}

// NewLedger creates a Ledger with the given eviction settings. Zero values
// fall back to the defaults.
func NewLedger(maxEntries int, retention time.Duration) *Ledger {
	if maxEntries <= 0 {
		maxEntries = DefaultLedgerMaxEntries
	}
	if retention <= 0 {
		retention = DefaultLedgerRetention
	}
	return &Ledger{
		entries:    make(map[ledgerKey]time.Time),
		maxEntries: maxEntries,
		retention:  retention,
	}
}

// Touch records a successful reply at. Timestamps never move backwards.
// Returns the number of entries evicted by the size-triggered sweep.
func (l *Ledger) Touch(channelID, counterpart, identityID string, at time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := ledgerKey{channelID, counterpart, identityID}
	if prev, ok := l.entries[k]; !ok || at.After(prev) {
		l.entries[k] = at
	}
	if len(l.entries) > l.maxEntries {
		return l.sweepLocked(at)
	}
	return 0
}

// Last returns the last reply instant for the triple.
func (l *Ledger) Last(channelID, counterpart, identityID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.entries[ledgerKey{channelID, counterpart, identityID}]
	return t, ok
}

// SinceMillis returns the milliseconds elapsed since the last reply. With no
// prior reply the counterpart is treated as a stranger (a year ago).
func (l *Ledger) SinceMillis(channelID, counterpart, identityID string, now time.Time) int64 {
	last, ok := l.Last(channelID, counterpart, identityID)
	if !ok {
		return neverInteracted
	}
	ms := now.Sub(last).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// Sweep drops entries older than the retention window if the ledger is over
// its size threshold.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) <= l.maxEntries {
		return 0
	}
	return l.sweepLocked(now)
}

func (l *Ledger) sweepLocked(now time.Time) int {
	cutoff := now.Add(-l.retention)
	dropped := 0
	for k, t := range l.entries {
		if t.Before(cutoff) {
			delete(l.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
