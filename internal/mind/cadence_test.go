package mind

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaCfg(min, max int) *MediaConfig {
	return &MediaConfig{Topics: []string{"cats"}, MinInterval: min, MaxInterval: max}
}

func TestShouldAttach_FixedInterval(t *testing.T) {
	c := NewCadence(lowRand())
	cfg := mediaCfg(3, 3)

	var got []bool
	for i := 0; i < 9; i++ {
		got = append(got, c.ShouldAttach("c1", cfg, false, t0))
	}
	assert.Equal(t, []bool{false, false, true, false, false, true, false, false, true}, got)
}

func TestShouldAttach_TargetWithinInterval(t *testing.T) {
	c := NewCadence(highRand())
	cfg := mediaCfg(2, 4)

	var got []bool
	for i := 0; i < 8; i++ {
		got = append(got, c.ShouldAttach("c1", cfg, false, t0))
	}
	assert.Equal(t, []bool{false, false, false, true, false, false, false, true}, got)
}

func TestShouldAttach_ForceSkipsCounter(t *testing.T) {
	c := NewCadence(lowRand())
	assert.True(t, c.ShouldAttach("c1", nil, true, t0))
	assert.True(t, c.ShouldAttach("c1", mediaCfg(50, 50), true, t0))
	assert.Zero(t, c.Len())
}

func TestShouldAttach_DisabledConfig(t *testing.T) {
	c := NewCadence(lowRand())
	for i := 0; i < 5; i++ {
		assert.False(t, c.ShouldAttach("c1", nil, false, t0))
		assert.False(t, c.ShouldAttach("c1", &MediaConfig{MinInterval: 1, MaxInterval: 1}, false, t0))
	}
	assert.Zero(t, c.Len())
}

func TestShouldAttach_ConcurrentNeverDoubleTriggers(t *testing.T) {
	c := NewCadence(lowRand())
	cfg := mediaCfg(10, 10)

	var hits atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.ShouldAttach("c1", cfg, false, t0) {
				hits.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), hits.Load())
}

func TestFetchUnseen_Novel(t *testing.T) {
	c := NewCadence(lowRand())
	src := sequentialIDs()

	item, outcome := c.FetchUnseen(context.Background(), src, "c1", mediaCfg(1, 1), t0)
	require.NotNil(t, item)
	assert.Equal(t, FetchNovel, outcome)
	assert.Equal(t, "img-1", item.ID)
	assert.Equal(t, []string{"img-1"}, c.Recent("c1"))
}

func TestFetchUnseen_SkipsRecentIDs(t *testing.T) {
	c := NewCadence(lowRand())
	cfg := mediaCfg(1, 1)
	ids := []string{"a", "a", "a", "b"}
	src := &fakeMedia{next: func(call int) (string, error) { return ids[call-1], nil }}

	item, _ := c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	require.Equal(t, "a", item.ID)

	item, outcome := c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	require.NotNil(t, item)
	assert.Equal(t, "b", item.ID)
	assert.Equal(t, FetchNovel, outcome)
	assert.Equal(t, 4, src.Calls())
	assert.Equal(t, []string{"b", "a"}, c.Recent("c1"))
}

func TestFetchUnseen_DiscardedRepeatKeepsItsPlace(t *testing.T) {
	c := NewCadence(lowRand())
	cfg := mediaCfg(1, 1)
	ids := []string{"old", "mid", "new", "old", "fresh"}
	src := &fakeMedia{next: func(call int) (string, error) { return ids[call-1], nil }}

	for i := 0; i < 3; i++ {
		c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	}
	require.Equal(t, []string{"new", "mid", "old"}, c.Recent("c1"))

	item, outcome := c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	require.NotNil(t, item)
	assert.Equal(t, "fresh", item.ID)
	assert.Equal(t, FetchNovel, outcome)
	assert.Equal(t, []string{"fresh", "new", "mid", "old"}, c.Recent("c1"))
}

func TestFetchUnseen_AcceptsRepeatAfterRetries(t *testing.T) {
	c := NewCadence(lowRand())
	cfg := mediaCfg(1, 1)
	src := sameID("same")

	_, outcome := c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	require.Equal(t, FetchNovel, outcome)

	item, outcome := c.FetchUnseen(context.Background(), src, "c1", cfg, t0)
	require.NotNil(t, item)
	assert.Equal(t, "same", item.ID)
	assert.Equal(t, FetchRepeat, outcome)
	assert.Equal(t, 1+DefaultFetchAttempts+1, src.Calls())
	assert.Equal(t, []string{"same"}, c.Recent("c1"))
}

func TestFetchUnseen_SourceFailure(t *testing.T) {
	c := NewCadence(lowRand())
	src := failingMedia()

	item, outcome := c.FetchUnseen(context.Background(), src, "c1", mediaCfg(1, 1), t0)
	assert.Nil(t, item)
	assert.Equal(t, FetchNone, outcome)
	assert.Equal(t, DefaultFetchAttempts+1, src.Calls())

	item, outcome = c.FetchUnseen(context.Background(), nil, "c1", mediaCfg(1, 1), t0)
	assert.Nil(t, item)
	assert.Equal(t, FetchNone, outcome)
}

func TestFetchUnseen_StopsWhenCancelled(t *testing.T) {
	c := NewCadence(lowRand())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := sequentialIDs()

	item, outcome := c.FetchUnseen(ctx, src, "c1", mediaCfg(1, 1), t0)
	assert.Nil(t, item)
	assert.Equal(t, FetchNone, outcome)
	assert.Zero(t, src.Calls())
}

func TestRecent_CappedNewestFirst(t *testing.T) {
	c := NewCadence(lowRand())
	src := sequentialIDs()
	for i := 0; i < 35; i++ {
		c.FetchUnseen(context.Background(), src, "c1", mediaCfg(1, 1), t0)
	}
	recent := c.Recent("c1")
	require.Len(t, recent, DefaultRecentCapacity)
	assert.Equal(t, "img-35", recent[0])
	assert.Equal(t, fmt.Sprintf("img-%d", 35-DefaultRecentCapacity+1), recent[len(recent)-1])
	assert.Nil(t, c.Recent("other"))
}

func TestCadence_Sweep(t *testing.T) {
	c := NewCadence(lowRand())
	c.maxEntries = 1
	cfg := mediaCfg(1, 1)

	c.ShouldAttach("old", cfg, false, t0)
	assert.Zero(t, c.Sweep(t0.Add(60*24*time.Hour)))

	later := t0.Add(DefaultCadenceRetention + time.Hour)
	c.ShouldAttach("new", cfg, false, later)
	assert.Equal(t, 1, c.Len())
	assert.Nil(t, c.Recent("old"))
}
