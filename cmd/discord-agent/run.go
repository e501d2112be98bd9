package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
	"github.com/WickedDevTeam/discord-agent/internal/config"
	"github.com/WickedDevTeam/discord-agent/internal/discord"
	"github.com/WickedDevTeam/discord-agent/internal/logging"
	"github.com/WickedDevTeam/discord-agent/internal/media"
	"github.com/WickedDevTeam/discord-agent/internal/mind"
	"github.com/WickedDevTeam/discord-agent/internal/ops"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in every configured identity and start answering",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: cfg.DevMode})

	idFile, err := config.LoadIdentities(cfg.IdentitiesPath)
	if err != nil {
		return err
	}
	identities, err := loginIdentities(idFile)
	if err != nil {
		return err
	}

	provider, err := ai.NewProvider(cfg.AIProvider, cfg.AIModel)
	if err != nil {
		return err
	}
	inference := ai.NewInferencer(provider, idFile.Personas)

	var mediaSrc mind.MediaSource
	if cfg.MediaBaseURL != "" {
		client, err := media.NewClient(cfg.MediaBaseURL, cfg.MediaAPIKey)
		if err != nil {
			return err
		}
		mediaSrc = client
	} else {
		log.Warn().Msg("MEDIA_BASE_URL is not set, replies will never carry images")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := mind.NewStore(nil)
	runner := mind.NewRunner(ctx, store, inference, mediaSrc, mind.Options{
		DevMode:             cfg.DevMode,
		AllowDebugOverrides: cfg.AllowDebugOverrides,
		HistoryLimit:        cfg.HistoryLimit,
		Logger:              log,
	})
	sweeper, err := mind.NewSweeper(store, cfg.SweepSchedule, log)
	if err != nil {
		return err
	}
	bot, err := discord.New(runner, identities, log)
	if err != nil {
		return err
	}

	log.Info().
		Int("identities", len(identities)).
		Str("provider", cfg.AIProvider).
		Bool("dev", cfg.DevMode).
		Msg("starting discord-agent")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return ops.Serve(gctx, cfg.MetricsAddr, ops.NewRouter(log, store.Stats), log)
		})
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending replies did not finish in time")
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error().Err(runErr).Msg("stopped with error")
		return runErr
	}
	log.Info().Msg("bye")
	return nil
}

func loginIdentities(f *config.IdentityFile) ([]discord.Identity, error) {
	out := make([]discord.Identity, 0, len(f.Identities))
	var errs []error
	for _, id := range f.Identities {
		tok, err := id.Token()
		if err != nil {
			errs = append(errs, fmt.Errorf("identity %s: %w", id.ID, err))
			continue
		}
		out = append(out, discord.Identity{Config: id.Mind(), Token: tok})
	}
	return out, errors.Join(errs...)
}

// cliLogger is used by the inspection commands.
func cliLogger() zerolog.Logger {
	return logging.New(logging.Options{Level: "warn", Console: true})
}
