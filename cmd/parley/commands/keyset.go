package commands

import (
	"encoding/json"
	"fmt"

	"github.com/dyluth/parley/internal/printer"
	"github.com/spf13/cobra"
)

var (
	keysetPauseKey  string
	keysetStateName string
)

var keysetCmd = &cobra.Command{
	Use:   "keyset [BASE_KEY]",
	Short: "Derive the response and schema keys of an input channel",
	Long: `Derive a keyset without touching the store.

From a base key:
  parley keyset approval
  {"response":"approval-response","schema":"approval-schema"}

From a pause:
  parley keyset --pause-key 3f2a... --state-name Suspended`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeyset,
}

func init() {
	keysetCmd.Flags().StringVar(&keysetPauseKey, "pause-key", "", "Derive from a paused state's pause key")
	keysetCmd.Flags().StringVar(&keysetStateName, "state-name", "Paused", "Name of the paused state")
	rootCmd.AddCommand(keysetCmd)
}

func runKeyset(cmd *cobra.Command, args []string) error {
	p := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	var baseKey string
	if len(args) > 0 {
		baseKey = args[0]
	}

	keyset, err := keysetFromFlags(p, baseKey, keysetPauseKey, keysetStateName)
	if err != nil {
		return err
	}

	data, err := json.Marshal(keyset)
	if err != nil {
		return fmt.Errorf("failed to marshal keyset: %w", err)
	}
	p.Info("%s\n", data)
	return nil
}
