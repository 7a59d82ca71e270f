package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	saveSchemaKey       string
	saveSchemaPauseKey  string
	saveSchemaStateName string
)

var saveSchemaCmd = &cobra.Command{
	Use:   "save-schema INPUT",
	Short: "Save an input type's schema for a paused run",
	Long: `Store the schema document of a declared input type under the schema key
of a keyset, so responders know what the run expects.

Examples:
  parley save-schema Approval --run <run-id> --key approval
  parley save-schema Approval --run <run-id> --pause-key <pause-key>`,
	Args: cobra.ExactArgs(1),
	RunE: runSaveSchema,
}

func init() {
	saveSchemaCmd.Flags().StringVar(&saveSchemaKey, "key", "", "Base key of the keyset")
	saveSchemaCmd.Flags().StringVar(&saveSchemaPauseKey, "pause-key", "", "Derive the keyset from a pause key")
	saveSchemaCmd.Flags().StringVar(&saveSchemaStateName, "state-name", "Paused", "Name of the paused state")
	rootCmd.AddCommand(saveSchemaCmd)
}

func runSaveSchema(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireRun("save a schema"); err != nil {
		return err
	}

	in, err := s.input(args[0])
	if err != nil {
		return err
	}

	keyset, err := keysetFromFlags(s.printer, saveSchemaKey, saveSchemaPauseKey, saveSchemaStateName)
	if err != nil {
		return err
	}

	if err := in.Save(cmd.Context(), s.client, keyset, ""); err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}

	s.printer.Success("Saved %s schema at %s\n", in.Name(), keyset.Schema)
	return nil
}
