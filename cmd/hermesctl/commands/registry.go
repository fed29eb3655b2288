package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bsc-ssrg/hermes/internal/cliutil"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "List the request types registered on a running hermesd (via its debug HTTP surface)",
	RunE:  runRegistry,
}

type registryEntry struct {
	ID               uint16 `json:"id"`
	Name             string `json:"name"`
	RequiresResponse bool   `json:"requires_response"`
}

func runRegistry(_ *cobra.Command, _ []string) error {
	resp, err := http.Get(debugAddr + "/debug/registry")
	if err != nil {
		return fmt.Errorf("GET /debug/registry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /debug/registry: unexpected status %s", resp.Status)
	}

	var entries []registryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{strconv.Itoa(int(e.ID)), e.Name, strconv.FormatBool(e.RequiresResponse)})
	}
	cliutil.PrintTable(os.Stdout, []string{"ID", "Name", "Requires Response"}, rows)
	return nil
}
