package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/examples"
)

var echoMessage string

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Exercise scenario S1: post send_message and print its retval",
	RunE:  runEcho,
}

func init() {
	echoCmd.Flags().StringVar(&echoMessage, "message", "Hello world!!!", "message to post")
}

func runEcho(_ *cobra.Command, _ []string) error {
	eng, ep, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	h, err := hermes.PostT(eng, examples.SendMessage, ep, examples.SendMessageIn{Message: echoMessage})
	if err != nil {
		return fmt.Errorf("post send_message: %w", err)
	}
	out, err := h.Get()
	if err != nil {
		return fmt.Errorf("get(): %w", err)
	}
	for _, o := range out {
		fmt.Printf("send_message -> retval=%d\n", o.Retval)
	}
	return nil
}
