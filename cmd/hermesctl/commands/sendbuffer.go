package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/examples"
	"github.com/bsc-ssrg/hermes/xport"
)

const sendBufferLiteral = "These are the contents of an example buffer"

var sendBufferFile string

var sendBufferCmd = &cobra.Command{
	Use:   "send-buffer",
	Short: "Exercise scenario S3: expose source buffers and let the server async_pull them",
	RunE:  runSendBuffer,
}

func init() {
	sendBufferCmd.Flags().StringVar(&sendBufferFile, "file", "", "path to a second source buffer (required)")
	_ = sendBufferCmd.MarkFlagRequired("file")
}

// runSendBuffer exposes two read-only segments (the literal string from
// the scenario and the named file's bytes) and posts send_buffer so the
// server can async_pull both into its own local storage. The original
// scenario memory-maps the second segment; this reads it fully into
// memory instead, since no ecosystem mmap dependency is wired elsewhere
// in this module.
func runSendBuffer(_ *cobra.Command, _ []string) error {
	fileData, err := os.ReadFile(sendBufferFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", sendBufferFile, err)
	}

	eng, ep, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	source, err := eng.Expose([][]byte{[]byte(sendBufferLiteral), fileData}, xport.AccessReadOnly)
	if err != nil {
		return fmt.Errorf("expose: %w", err)
	}
	defer source.Release()

	h, err := hermes.PostT(eng, examples.SendBuffer, ep, examples.SendBufferIn{
		Pathname: sendBufferFile,
		Buffers:  source.ToRef(),
	})
	if err != nil {
		return fmt.Errorf("post send_buffer: %w", err)
	}
	out, err := h.Get()
	if err != nil {
		return fmt.Errorf("get(): %w", err)
	}
	for _, o := range out {
		fmt.Printf("send_buffer -> retval=%d (exposed %d + %d bytes)\n", o.Retval, len(sendBufferLiteral), len(fileData))
	}
	return nil
}
