package mind

import (
	"time"

	"github.com/WickedDevTeam/discord-agent/internal/metrics"
)

// Store owns all engagement state: interaction ledger, chain guard and media
// cadence with its recency cache. Each part guards itself, so the Store can
// be shared by every identity. Nothing is persisted.
type Store struct {
	Ledger  *Ledger
	Chains  *ChainGuard
	Cadence *Cadence
}

// NewStore creates a Store with default limits. r drives the cadence
// targets; nil uses DefaultRand.
func NewStore(r Rand) *Store {
	return &Store{
		Ledger:  NewLedger(0, 0),
		Chains:  NewChainGuard(0, 0, 0),
		Cadence: NewCadence(r),
	}
}

// Stats is a snapshot of map sizes.
type Stats struct {
	Ledger  int
	Chains  int
	Cadence int
}

// Stats returns current entry counts.
func (s *Store) Stats() Stats {
	return Stats{
		Ledger:  s.Ledger.Len(),
		Chains:  s.Chains.Len(),
		Cadence: s.Cadence.Len(),
	}
}

// Sweep runs every size-gated eviction and returns how many entries each
// map dropped.
func (s *Store) Sweep(now time.Time) Stats {
	dropped := Stats{
		Ledger:  s.Ledger.Sweep(now),
		Chains:  s.Chains.Sweep(now),
		Cadence: s.Cadence.Sweep(now),
	}
	metrics.StoreEvictions.WithLabelValues("ledger").Add(float64(dropped.Ledger))
	metrics.StoreEvictions.WithLabelValues("chains").Add(float64(dropped.Chains))
	metrics.StoreEvictions.WithLabelValues("cadence").Add(float64(dropped.Cadence))
	s.publish()
	return dropped
}

func (s *Store) publish() {
	st := s.Stats()
	metrics.StoreEntries.WithLabelValues("ledger").Set(float64(st.Ledger))
	metrics.StoreEntries.WithLabelValues("chains").Set(float64(st.Chains))
	metrics.StoreEntries.WithLabelValues("cadence").Set(float64(st.Cadence))
}
