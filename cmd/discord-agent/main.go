package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "discord-agent",
	Short:        "discord-agent - autonomous chat identities that decide when to speak",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd, oddsCmd, delayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
