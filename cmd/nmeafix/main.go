// Command nmeafix decodes NMEA-0183 receiver output and publishes the fix.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nmeafix",
		Short:         "NMEA-0183 decoder and fix publisher",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newSummaryCmd())
	return rootCmd
}
