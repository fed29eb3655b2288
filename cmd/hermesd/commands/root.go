// Package commands implements the hermesd CLI: a server process hosting
// the example handlers for scenarios S1-S4.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information, injected at build time.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "hermesd",
	Short: "Hermes example RPC server",
	Long: `hermesd hosts the example request handlers used to exercise the
Hermes engine end to end: send_message (S1), shutdown (S2), send_buffer
(S3, async_pull) and recv_buffer (S4, async_push).

Use "hermesd serve --help" for the available flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, read by viper)")
	rootCmd.AddCommand(serveCmd)
}
