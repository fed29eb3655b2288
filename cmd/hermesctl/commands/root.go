// Package commands implements the hermesctl CLI: a client process driving
// each example scenario against a running hermesd.
package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	debugAddr  string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "hermesctl",
	Short: "Hermes example RPC client",
	Long: `hermesctl drives each of the example scenarios against a running
hermesd: echo (S1), shutdown (S2), send-buffer (S3, async_pull) and
recv-buffer (S4, async_push).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "bmi+tcp://127.0.0.1:7777", "hermesd address, scheme-qualified")
	rootCmd.PersistentFlags().StringVar(&debugAddr, "debug-addr", "http://127.0.0.1:7778", "hermesd debug HTTP base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "lookup timeout")

	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(sendBufferCmd)
	rootCmd.AddCommand(recvBufferCmd)
	rootCmd.AddCommand(registryCmd)
}
