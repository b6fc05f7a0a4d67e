package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "netsim",
	Short: "netsim simulates unreliable network delivery between virtual " +
		"peer devices.",
	Long: `netsim simulates unreliable network delivery between a small set ` +
		`of virtual peer devices, for exercising synchronization logic under ` +
		`adverse conditions without a real network. Latency, packet loss, ` +
		`duplication, device connectivity, and playback speed are all ` +
		`adjustable at runtime through an HTTP control plane.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; flags and real env still apply.
		_ = godotenv.Load()

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"enable debug logging")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
