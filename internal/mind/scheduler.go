package mind

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule is how often the store is swept when nothing else
// triggers eviction.
const DefaultSweepSchedule = "@every 10m"

// Sweeper runs Store.Sweep on a cron schedule. Size-triggered sweeps still
// happen inline on writes; this keeps idle maps bounded too.
type Sweeper struct {
	store *Store
	cron  *cron.Cron
	now   func() time.Time
	log   zerolog.Logger
}

// NewSweeper parses schedule (standard cron or @every descriptors).
func NewSweeper(store *Store, schedule string, log zerolog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		store: store,
		cron:  cron.New(),
		now:   time.Now,
		log:   log.With().Str("component", "sweeper").Logger(),
	}
	if _, err := s.cron.AddFunc(schedule, s.SweepNow); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.cron.Start()
	s.log.Info().Msg("store sweeper started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// SweepNow runs one sweep immediately.
func (s *Sweeper) SweepNow() {
	dropped := s.store.Sweep(s.now())
	st := s.store.Stats()
	s.log.Debug().
		Int("ledger", st.Ledger).
		Int("chains", st.Chains).
		Int("cadence", st.Cadence).
		Int("dropped", dropped.Ledger+dropped.Chains+dropped.Cadence).
		Msg("store swept")
}
