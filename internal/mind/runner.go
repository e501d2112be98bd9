package mind

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
	"github.com/WickedDevTeam/discord-agent/internal/media"
	"github.com/WickedDevTeam/discord-agent/internal/metrics"
	"github.com/WickedDevTeam/discord-agent/pkg/jobmgr"
)

// Outcome is how the handling of one message for one identity ended.
type Outcome string

const (
	OutcomeSelf         Outcome = "self"
	OutcomeNotAddressed Outcome = "not_addressed"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeChainBlocked Outcome = "chain_blocked"
	OutcomeNoPermission Outcome = "no_permission"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeReplied      Outcome = "replied"
	OutcomeFallback     Outcome = "fallback"
	OutcomeFailed       Outcome = "failed"
)

const (
	DefaultHistoryLimit = 20
	DefaultFallbackText = "Sorry, I lost my train of thought. Give me a moment."
)

// Options tune a Runner. Zero values are replaced with defaults.
type Options struct {
	DevMode             bool
	AllowDebugOverrides bool
	HistoryLimit        int
	FallbackText        string

	Logger zerolog.Logger
	Rand   Rand
	Now    func() time.Time
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner is the decision orchestrator. It receives every inbound message for
// every identity, decides whether and when to answer, and drives the
// transport, inference and media collaborators.
type Runner struct {
	store     *Store
	timing    *Timing
	inference Inference
	media     MediaSource
	jobs      *jobmgr.Manager
	opts      Options
	log       zerolog.Logger

	mu         sync.RWMutex
	transports map[string]Transport
}

// NewRunner creates a Runner. Message flows started by OnMessage are children
// of ctx; cancelling it aborts pending delays.
func NewRunner(ctx context.Context, store *Store, inference Inference, mediaSrc MediaSource, opts Options) *Runner {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.FallbackText == "" {
		opts.FallbackText = DefaultFallbackText
	}
	if opts.Rand == nil {
		opts.Rand = DefaultRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if store == nil {
		store = NewStore(opts.Rand)
	}

	log := opts.Logger.With().Str("component", "mind").Logger()
	r := &Runner{
		store:      store,
		timing:     NewTiming(opts.Rand, opts.DevMode),
		inference:  inference,
		media:      mediaSrc,
		opts:       opts,
		log:        log,
		transports: make(map[string]Transport),
	}
	r.jobs = jobmgr.NewManager(ctx, r.reportJob)
	return r
}

// Store returns the state store the runner works on.
func (r *Runner) Store() *Store { return r.store }

// Register binds the transport used to act as identityID.
func (r *Runner) Register(identityID string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[identityID] = t
}

// Unregister drops the transport of identityID.
func (r *Runner) Unregister(identityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.transports, identityID)
}

// IsIdentity reports whether id belongs to a registered identity.
func (r *Runner) IsIdentity(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transports[id]
	return ok
}

func (r *Runner) transport(identityID string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[identityID]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, identityID)
	}
	return t, nil
}

// OnMessage handles msg on behalf of cfg in the background. It never blocks
// on delays or collaborators and never panics into the caller.
func (r *Runner) OnMessage(msg Message, cfg IdentityConfig) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	name := cfg.ID + ":" + msg.ChannelID + ":" + id
	err := r.jobs.StartAsync(name, func(ctx context.Context) error {
		_, err := r.Handle(ctx, msg, cfg)
		return err
	})
	if err != nil && !errors.Is(err, jobmgr.ErrDuplicate) {
		r.log.Warn().Err(err).Str("job", name).Msg("message dropped")
	}
}

// Shutdown cancels pending flows and waits for them to unwind.
func (r *Runner) Shutdown(ctx context.Context) error {
	return r.jobs.Shutdown(ctx)
}

// Handle runs the full decision for one message synchronously.
func (r *Runner) Handle(ctx context.Context, msg Message, cfg IdentityConfig) (outcome Outcome, err error) {
	now := r.opts.Now()
	if msg.At.IsZero() {
		msg.At = now
	}
	log := r.log.With().
		Str("trace", uuid.NewString()).
		Str("identity", cfg.ID).
		Str("channel", msg.ChannelID).
		Logger()
	defer func() {
		metrics.Decisions.WithLabelValues(cfg.ID, string(outcome)).Inc()
		ev := log.Debug()
		if outcome == OutcomeReplied || outcome == OutcomeFallback {
			ev = log.Info()
		}
		ev.Str("outcome", string(outcome)).Err(err).Msg("decision")
	}()

	if msg.AuthorID == cfg.ID {
		return OutcomeSelf, nil
	}
	if !msg.AuthorIsAgent && !msg.Direct {
		r.store.Chains.ResetHuman(msg.ChannelID)
	}

	t, err := r.transport(cfg.ID)
	if err != nil {
		return OutcomeFailed, err
	}

	ov := ParseOverrides(msg.Text, r.opts.AllowDebugOverrides)
	explicit := msg.Mentioned(cfg.ID) || msg.ContainsName(cfg.Name)
	addressed := explicit || msg.Direct

	if !addressed && !cfg.HasEngagement() && !cfg.HasLegacy() {
		return OutcomeNotAddressed, nil
	}

	p := IdentityProbability(&cfg, msg.Text, addressed)
	if !sample(r.opts.Rand, p) {
		log.Debug().Float64("p", p).Msg("coin says no")
		return OutcomeSkipped, nil
	}

	var claim *ChainClaim
	if !msg.Direct {
		c, ok := r.store.Chains.Claim(msg.ChannelID, cfg.ID, now)
		if !ok {
			return OutcomeChainBlocked, nil
		}
		claim = c
		// Released unless a reply actually went out.
		defer claim.Release()
	}
	if !t.HasPermission(ctx, msg.ChannelID, cfg.ID) {
		return OutcomeNoPermission, nil
	}

	d := r.plan(msg, cfg, explicit, ov, now)
	metrics.ReplyDelay.Observe(d.Response.Seconds())
	log.Debug().
		Str("action", "wait").
		Dur("delay", d.Response).
		Dur("typing", d.Typing).
		Bool("direct", msg.Direct).
		Bool("addressed", addressed).
		Msg("reply scheduled")

	typing := time.AfterFunc(d.Typing, func() {
		if err := t.ShowTyping(ctx, msg.ChannelID); err != nil {
			log.Debug().Err(err).Msg("typing indicator failed")
		}
	})
	defer typing.Stop()

	if err := r.opts.Sleep(ctx, d.Response); err != nil {
		return OutcomeCancelled, err
	}

	history, err := t.FetchHistory(ctx, msg.ChannelID, r.opts.HistoryLimit)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fetch history: %w", err)
	}
	conv := Conversation(history, msg, cfg.ID)
	logInference(log, cfg.Persona, conv)

	res, err := r.inference.Infer(ctx, cfg.Persona, conv, cfg.FilterContent)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("infer: %w", err)
	}
	if res.Kind == ai.RateLimited {
		return OutcomeRateLimited, nil
	}

	reply := Reply{Content: res.Text}
	if explicit {
		reply.ReplyTo = msg.ID
	}
	if r.store.Cadence.ShouldAttach(msg.ChannelID, cfg.Media, ov.ForceMedia, r.opts.Now()) {
		reply.Attachment = r.fetchMedia(ctx, log, msg.ChannelID, cfg.Media)
	}

	if err := t.SendReply(ctx, msg.ChannelID, reply); err != nil {
		log.Warn().Err(err).Msg("send failed, sending fallback")
		if ferr := t.SendReply(ctx, msg.ChannelID, Reply{Content: r.opts.FallbackText}); ferr != nil {
			log.Error().Err(ferr).Msg("fallback send failed")
			return OutcomeFailed, nil
		}
		claim.Commit(r.opts.Now())
		return OutcomeFallback, nil
	}

	mode := "message"
	if reply.ReplyTo != "" {
		mode = "reply"
	}
	metrics.RepliesSent.WithLabelValues(cfg.ID, mode).Inc()

	r.store.Ledger.Touch(msg.ChannelID, msg.AuthorID, cfg.ID, r.opts.Now())
	claim.Commit(r.opts.Now())
	return OutcomeReplied, nil
}

func (r *Runner) plan(msg Message, cfg IdentityConfig, explicit bool, ov DebugOverrides, now time.Time) Delay {
	if ov.ForceInstantReply {
		return r.timing.Instant()
	}
	since := r.store.Ledger.SinceMillis(msg.ChannelID, msg.AuthorID, cfg.ID, now)
	d := r.timing.ComputeDelay(since, msg.Direct, IsUrgent(msg.Text, explicit))
	return r.timing.ApplyResponsivenessCap(d)
}

func (r *Runner) fetchMedia(ctx context.Context, log zerolog.Logger, channelID string, cfg *MediaConfig) *media.Item {
	item, outcome := r.store.Cadence.FetchUnseen(ctx, r.media, channelID, cfg, r.opts.Now())
	metrics.MediaFetches.WithLabelValues(string(outcome)).Inc()
	if item == nil {
		log.Debug().Msg("no media available, replying without attachment")
		return nil
	}
	log.Debug().Str("media", item.ID).Str("outcome", string(outcome)).Msg("media attached")
	return item
}

func (r *Runner) reportJob(status string) {
	r.log.Trace().Str("job", status).Msg("job status")
	if strings.HasPrefix(status, "panic:") {
		r.log.Error().Str("job", status).Msg("message flow panicked")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
