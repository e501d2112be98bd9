package mind

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/WickedDevTeam/discord-agent/internal/media"
)

// Cadence defaults.
const (
	DefaultCadenceMaxEntries = 1000
	DefaultCadenceRetention  = 30 * 24 * time.Hour
	DefaultRecentCapacity    = 30
	DefaultFetchAttempts     = 5
)

// FetchOutcome describes how FetchUnseen ended.
type FetchOutcome string

const (
	FetchNovel  FetchOutcome = "novel"
	FetchRepeat FetchOutcome = "repeat"
	FetchNone   FetchOutcome = "none"
)

// channelMedia pairs the cadence counter of a channel with the ids recently
// sent there, so both are evicted together.
type channelMedia struct {
	started    bool
	count      int
	target     int
	lastAttach time.Time
	recent     []string // most recent first
}

// Cadence decides when a reply carries an image and remembers which images a
// channel has already seen. Safe for concurrent use.
type Cadence struct {
	mu          sync.Mutex
	channels    map[string]*channelMedia
	rand        Rand
	maxEntries  int
	retention   time.Duration
	recentCap   int
	maxAttempts int
}

// NewCadence creates a Cadence with default limits.
func NewCadence(r Rand) *Cadence {
	if r == nil {
		r = DefaultRand()
	}
	return &Cadence{
		channels:    make(map[string]*channelMedia),
		rand:        r,
		maxEntries:  DefaultCadenceMaxEntries,
		retention:   DefaultCadenceRetention,
		recentCap:   DefaultRecentCapacity,
		maxAttempts: DefaultFetchAttempts,
	}
}

// ShouldAttach counts one message in channelID and reports whether it is the
// one that gets an image. The first message seen in a channel only starts
// the counter. force short-circuits to true without touching the counter.
func (c *Cadence) ShouldAttach(channelID string, cfg *MediaConfig, force bool, now time.Time) bool {
	if force {
		return true
	}
	if !cfg.Enabled() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.entryLocked(channelID, now)
	if !ch.started {
		ch.started = true
		ch.count = 1
		ch.target = c.rollTarget(cfg)
		return false
	}

	ch.count++
	if ch.count < ch.target {
		return false
	}
	ch.count = 0
	ch.target = c.rollTarget(cfg)
	ch.lastAttach = now
	return true
}

// FetchUnseen asks src for an image the channel has not seen recently. After
// maxAttempts misses it makes one last call and accepts a repeat rather than
// attaching nothing. Failures are never returned; nil means no image.
func (c *Cadence) FetchUnseen(ctx context.Context, src MediaSource, channelID string, cfg *MediaConfig, now time.Time) (*media.Item, FetchOutcome) {
	if src == nil || cfg == nil {
		return nil, FetchNone
	}
	for i := 0; i < c.maxAttempts; i++ {
		if ctx.Err() != nil {
			return nil, FetchNone
		}
		item, err := src.FetchRandomItem(ctx, cfg.Topics, cfg.AllowAdult)
		if err != nil || item == nil {
			continue
		}
		if c.pushIfNew(channelID, item.ID, now) {
			return item, FetchNovel
		}
	}

	if ctx.Err() != nil {
		return nil, FetchNone
	}
	item, err := src.FetchRandomItem(ctx, cfg.Topics, cfg.AllowAdult)
	if err != nil || item == nil {
		return nil, FetchNone
	}
	if c.remember(channelID, item.ID, now) {
		return item, FetchNovel
	}
	return item, FetchRepeat
}

// Recent returns a copy of the recency list for channelID, newest first.
func (c *Cadence) Recent(channelID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return nil
	}
	return append([]string(nil), ch.recent...)
}

// Sweep drops channels idle for longer than the retention window once the
// map is over its size threshold.
func (c *Cadence) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.channels) <= c.maxEntries {
		return 0
	}
	return c.sweepLocked(now)
}

// Len returns the number of tracked channels.
func (c *Cadence) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// pushIfNew puts id at the front of the recency list unless the list already
// holds it, in which case nothing changes.
func (c *Cadence) pushIfNew(channelID, id string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.entryLocked(channelID, now)
	if slices.Contains(ch.recent, id) {
		return false
	}
	c.pushLocked(ch, id, now)
	return true
}

// remember moves id to the front of the recency list and reports whether it
// was absent before.
func (c *Cadence) remember(channelID, id string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.entryLocked(channelID, now)
	i := slices.Index(ch.recent, id)
	if i >= 0 {
		ch.recent = slices.Delete(ch.recent, i, i+1)
	}
	c.pushLocked(ch, id, now)
	return i < 0
}

func (c *Cadence) pushLocked(ch *channelMedia, id string, now time.Time) {
	ch.recent = append([]string{id}, ch.recent...)
	if len(ch.recent) > c.recentCap {
		ch.recent = ch.recent[:c.recentCap]
	}
	ch.lastAttach = now
}

func (c *Cadence) entryLocked(channelID string, now time.Time) *channelMedia {
	ch, ok := c.channels[channelID]
	if ok {
		return ch
	}
	ch = &channelMedia{lastAttach: now}
	c.channels[channelID] = ch
	if len(c.channels) > c.maxEntries {
		c.sweepLocked(now)
	}
	return ch
}

func (c *Cadence) sweepLocked(now time.Time) int {
	cutoff := now.Add(-c.retention)
	dropped := 0
	for id, ch := range c.channels {
		if ch.lastAttach.Before(cutoff) {
			delete(c.channels, id)
			dropped++
		}
	}
	return dropped
}

func (c *Cadence) rollTarget(cfg *MediaConfig) int {
	lo, hi := cfg.MinInterval, cfg.MaxInterval
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return uniformInt(c.rand, lo, hi)
}
