package mind

import (
	"sync"
	"time"
)

// Chain guard defaults.
const (
	DefaultChainLimit      = 3
	DefaultChainInactivity = 10 * time.Minute
	DefaultChainMaxEntries = 1000
)

type chainState struct {
	lastIdentity string
	count        int
	lastActivity time.Time
	// gen changes whenever the chain restarts. prev is the chain that the
	// current one replaced, restored if the claim that replaced it is released.
	gen  uint64
	prev chainMark
}

type chainMark struct {
	identity string
	count    int
	gen      uint64
}

// ChainGuard stops identities from replying to each other forever. It keeps,
// per channel, who replied last and how many times in a row. A human message
// or a quiet period resets the chain. Safe for concurrent use.
type ChainGuard struct {
	mu         sync.Mutex
	channels   map[string]*chainState
	limit      int
	inactivity time.Duration
	maxEntries int
	seq        uint64
}

// NewChainGuard creates a guard. Zero values fall back to the defaults.
func NewChainGuard(limit int, inactivity time.Duration, maxEntries int) *ChainGuard {
	if limit <= 0 {
		limit = DefaultChainLimit
	}
	if inactivity <= 0 {
		inactivity = DefaultChainInactivity
	}
	if maxEntries <= 0 {
		maxEntries = DefaultChainMaxEntries
	}
	return &ChainGuard{
		channels:   make(map[string]*chainState),
		limit:      limit,
		inactivity: inactivity,
		maxEntries: maxEntries,
	}
}

// ResetHuman puts a channel back to idle after a non-agent message.
func (g *ChainGuard) ResetHuman(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.channels[channelID]; ok {
		g.restartLocked(st)
	}
}

// Allow reports whether identityID may reply in channelID at now. It does not
// change state; use Claim to take a slot.
func (g *ChainGuard) Allow(channelID, identityID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.channels[channelID]
	if !ok || g.expired(st, now) {
		return true
	}
	if st.lastIdentity != identityID {
		return true
	}
	return st.count < g.limit
}

// Record applies a sent reply by identityID and reports whether it was within
// the limit. A blocked reply leaves the state untouched.
func (g *ChainGuard) Record(channelID, identityID string, now time.Time) bool {
	c, ok := g.Claim(channelID, identityID, now)
	if ok {
		c.Commit(now)
	}
	return ok
}

// Claim takes a slot in the channel's chain for identityID, or reports false
// when the identity is at the limit. The slot counts against the limit at
// once, so concurrent flows cannot all pass. The caller must Commit the claim
// after sending or Release it when the reply is abandoned.
func (g *ChainGuard) Claim(channelID, identityID string, now time.Time) (*ChainClaim, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.channels[channelID]
	if !ok {
		st = &chainState{lastActivity: now}
		g.channels[channelID] = st
		if len(g.channels) > g.maxEntries {
			g.sweepLocked(now)
		}
	}
	if g.expired(st, now) {
		g.restartLocked(st)
	}

	switch {
	case st.lastIdentity != identityID:
		st.prev = chainMark{identity: st.lastIdentity, count: st.count, gen: st.gen}
		g.seq++
		st.gen = g.seq
		st.count = 1
	case st.count < g.limit:
		st.count++
	default:
		return nil, false
	}
	st.lastIdentity = identityID
	st.lastActivity = now
	return &ChainClaim{g: g, channelID: channelID, identityID: identityID, gen: st.gen}, true
}

// ChainClaim is one reserved reply slot. A nil claim is valid and does nothing.
type ChainClaim struct {
	g          *ChainGuard
	channelID  string
	identityID string
	gen        uint64
	done       bool
}

// Commit keeps the slot and stamps the channel's activity with now.
func (c *ChainClaim) Commit(now time.Time) {
	if c == nil {
		return
	}
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	st, ok := c.g.channels[c.channelID]
	if ok && st.gen == c.gen && st.lastIdentity == c.identityID && now.After(st.lastActivity) {
		st.lastActivity = now
	}
}

// Release gives the slot back. It is a no-op after Commit, after a second
// Release, or once the chain has been restarted by someone else.
func (c *ChainClaim) Release() {
	if c == nil {
		return
	}
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	st, ok := c.g.channels[c.channelID]
	if !ok || st.gen != c.gen || st.lastIdentity != c.identityID {
		return
	}
	if st.count > 1 {
		st.count--
		return
	}
	st.lastIdentity = st.prev.identity
	st.count = st.prev.count
	st.gen = st.prev.gen
	st.prev = chainMark{}
}

// Count returns the current chain length for a channel (0 if idle).
func (g *ChainGuard) Count(channelID string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.channels[channelID]
	if !ok || g.expired(st, now) {
		return 0
	}
	return st.count
}

// Sweep drops stale channels once the guard is over its size threshold.
func (g *ChainGuard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.channels) <= g.maxEntries {
		return 0
	}
	return g.sweepLocked(now)
}

func (g *ChainGuard) sweepLocked(now time.Time) int {
	cutoff := now.Add(-2 * g.inactivity)
	dropped := 0
	for id, st := range g.channels {
		if st.lastActivity.Before(cutoff) {
			delete(g.channels, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked channels.
func (g *ChainGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.channels)
}

func (g *ChainGuard) restartLocked(st *chainState) {
	g.seq++
	st.gen = g.seq
	st.count = 0
	st.lastIdentity = ""
	st.prev = chainMark{}
}

func (g *ChainGuard) expired(st *chainState, now time.Time) bool {
	return !st.lastActivity.IsZero() && now.Sub(st.lastActivity) > g.inactivity
}
