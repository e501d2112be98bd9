package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

var (
	oddsLevel     int
	oddsMentioned bool
	oddsFrequency string
	oddsBehavior  string

	delaySince   time.Duration
	delayDirect  bool
	delayUrgent  bool
	delayDev     bool
	delaySamples int
	delayNoCap   bool
)

var oddsCmd = &cobra.Command{
	Use:   "odds [text]",
	Short: "Print the reply probability for a message",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 1 {
			text = args[0]
		}
		cfg := &mind.IdentityConfig{Kind: mind.KindBot, EngagementLevel: oddsLevel}
		if oddsFrequency != "" || oddsBehavior != "" {
			cfg.Kind = mind.KindFlexible
			cfg.Legacy = &mind.LegacyConfig{
				Frequency: mind.Frequency(oddsFrequency),
				Behavior:  mind.Behavior(oddsBehavior),
			}
		}
		p := mind.IdentityProbability(cfg, text, oddsMentioned)
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", p)
		return nil
	},
}

var delayCmd = &cobra.Command{
	Use:   "delay",
	Short: "Sample reply delays for a given time since the last interaction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if delaySamples < 1 {
			return fmt.Errorf("--samples must be positive")
		}
		log := cliLogger()
		tm := mind.NewTiming(nil, delayDev)
		for i := 0; i < delaySamples; i++ {
			d := tm.ComputeDelay(delaySince.Milliseconds(), delayDirect, delayUrgent)
			if !delayNoCap {
				d = tm.ApplyResponsivenessCap(d)
			}
			log.Debug().Dur("response", d.Response).Dur("typing", d.Typing).Msg("sample")
			fmt.Fprintf(cmd.OutOrStdout(), "reply after %-8s typing at %s\n", d.Response, d.Typing.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	oddsCmd.Flags().IntVarP(&oddsLevel, "level", "l", 50, "engagement level 1..100 (0 disables)")
	oddsCmd.Flags().BoolVarP(&oddsMentioned, "mentioned", "m", false, "treat the message as addressed")
	oddsCmd.Flags().StringVar(&oddsFrequency, "frequency", "", "legacy frequency tier (high|medium|low)")
	oddsCmd.Flags().StringVar(&oddsBehavior, "behavior", "", "legacy behavior tier (aggressive|normal|passive)")

	delayCmd.Flags().DurationVar(&delaySince, "since", 365*24*time.Hour, "time since the last reply to this person")
	delayCmd.Flags().BoolVar(&delayDirect, "direct", false, "direct message")
	delayCmd.Flags().BoolVar(&delayUrgent, "urgent", false, "urgent message")
	delayCmd.Flags().BoolVar(&delayDev, "dev", false, "use the development ceiling")
	delayCmd.Flags().IntVarP(&delaySamples, "samples", "n", 5, "number of samples")
	delayCmd.Flags().BoolVar(&delayNoCap, "no-cap", false, "skip the responsiveness cap")
}
