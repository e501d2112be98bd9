package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

// Identity is one account the process logs in as.
type Identity struct {
	Config mind.IdentityConfig
	Token  string
}

// Bot runs one Discord session per identity and feeds every message each
// session sees into the runner.
type Bot struct {
	runner   *mind.Runner
	log      zerolog.Logger
	sessions []*Session

	mu   sync.Mutex
	open []*Session
}

// New prepares sessions for identities. Nothing connects until Run.
func New(runner *mind.Runner, identities []Identity, log zerolog.Logger) (*Bot, error) {
	b := &Bot{
		runner: runner,
		log:    log.With().Str("component", "discord").Logger(),
	}
	for _, id := range identities {
		dg, err := discordgo.New("Bot " + id.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create session for %s: %w", id.Config.ID, err)
		}
		dg.Identify.Intents = discordgo.IntentsGuilds |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentMessageContent
		s := newSession(id.Config, dg, b.log)
		dg.AddHandler(b.onReady(s))
		dg.AddHandler(b.onMessageCreate(s))
		b.sessions = append(b.sessions, s)
	}
	return b, nil
}

// Run opens every session concurrently, blocks until ctx is done and then
// closes them. If any session fails to open, the ones already open are
// closed and the error is returned.
func (b *Bot) Run(ctx context.Context) error {
	for _, s := range b.sessions {
		b.runner.Register(s.cfg.ID, s)
	}
	defer func() {
		for _, s := range b.sessions {
			b.runner.Unregister(s.cfg.ID)
		}
	}()

	var g errgroup.Group
	for _, s := range b.sessions {
		g.Go(func() error {
			if err := s.dg.Open(); err != nil {
				return fmt.Errorf("failed to open Discord session for %s: %w", s.cfg.ID, err)
			}
			b.mu.Lock()
			b.open = append(b.open, s)
			b.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.closeAll()
		return err
	}

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing sessions")
	b.closeAll()
	return nil
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.open {
		if err := s.dg.Close(); err != nil {
			b.log.Warn().Err(err).Str("identity", s.cfg.ID).Msg("failed to close session")
		}
	}
	b.open = nil
}

func (b *Bot) onReady(s *Session) func(*discordgo.Session, *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User == nil {
			return
		}
		log := s.log.With().Str("user", r.User.Username).Logger()
		if r.User.ID != s.cfg.ID {
			log.Warn().Str("actual", r.User.ID).Msg("configured identity id does not match the logged in user")
		}
		log.Info().Int("guilds", len(r.Guilds)).Msg("identity is online")
	}
}

func (b *Bot) onMessageCreate(s *Session) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		msg := toMessage(m.Message, b.runner.IsIdentity)
		b.runner.OnMessage(msg, s.cfg)
	}
}
