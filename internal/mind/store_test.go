package mind

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StatsAndSweep(t *testing.T) {
	s := NewStore(lowRand())
	s.Ledger = NewLedger(1, time.Hour)
	s.Chains = NewChainGuard(3, time.Minute, 1)

	s.Ledger.Touch("c1", "a", "bot", t0)
	s.Chains.Record("c1", "bot", t0)
	s.Cadence.ShouldAttach("c1", mediaCfg(2, 2), false, t0)
	assert.Equal(t, Stats{Ledger: 1, Chains: 1, Cadence: 1}, s.Stats())

	s.Ledger.Touch("c2", "a", "bot", t0.Add(30*time.Minute))
	s.Chains.Record("c2", "bot", t0.Add(30*time.Second))
	require.Equal(t, Stats{Ledger: 2, Chains: 2, Cadence: 1}, s.Stats())

	dropped := s.Sweep(t0.Add(2 * time.Hour))
	assert.Equal(t, Stats{Ledger: 2, Chains: 2}, dropped)
	assert.Equal(t, Stats{Cadence: 1}, s.Stats())
}

func TestStore_InstancesAreIndependent(t *testing.T) {
	a, b := NewStore(nil), NewStore(nil)
	a.Ledger.Touch("c1", "u", "bot", t0)
	assert.Equal(t, 1, a.Ledger.Len())
	assert.Zero(t, b.Ledger.Len())
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	_, err := NewSweeper(NewStore(nil), "not a schedule", zerolog.Nop())
	assert.Error(t, err)
}

func TestSweeper_SweepNow(t *testing.T) {
	s := NewStore(nil)
	s.Ledger = NewLedger(1, time.Minute)
	s.Ledger.Touch("c1", "a", "bot", t0)
	s.Ledger.Touch("c2", "a", "bot", t0.Add(30*time.Second))

	sw, err := NewSweeper(s, "", zerolog.Nop())
	require.NoError(t, err)
	sw.now = func() time.Time { return t0.Add(time.Hour) }
	sw.SweepNow()
	assert.Zero(t, s.Ledger.Len())
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	sw, err := NewSweeper(NewStore(nil), "@every 1h", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestParseOverrides(t *testing.T) {
	assert.Equal(t, DebugOverrides{}, ParseOverrides("!debug-now !debug-media", false))

	ov := ParseOverrides("hey !DEBUG-NOW", true)
	assert.True(t, ov.ForceInstantReply)
	assert.False(t, ov.ForceMedia)
	assert.True(t, ov.Any())
	assert.False(t, ParseOverrides("hello", true).Any())
}
