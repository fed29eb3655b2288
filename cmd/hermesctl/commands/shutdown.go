package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/examples"
	"github.com/bsc-ssrg/hermes/internal/cliutil"
)

var shutdownForce bool

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Exercise scenario S2: post the one-way shutdown request",
	RunE:  runShutdown,
}

func init() {
	shutdownCmd.Flags().BoolVarP(&shutdownForce, "force", "f", false, "skip the confirmation prompt")
}

func runShutdown(_ *cobra.Command, _ []string) error {
	if !shutdownForce {
		ok, err := cliutil.Confirm(fmt.Sprintf("Shut down hermesd at %s?", serverAddr), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	eng, ep, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	h, err := hermes.PostT(eng, examples.Shutdown, ep, examples.ShutdownIn{})
	if err != nil {
		return fmt.Errorf("post shutdown: %w", err)
	}
	// shutdown is declared one-way: Get() would fail immediately rather
	// than block (testable property 7), so the handle is just released.
	h.Close()
	fmt.Println("shutdown posted")
	return nil
}
