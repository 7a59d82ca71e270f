package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/spf13/cobra"
)

var (
	respondKey       string
	respondPauseKey  string
	respondStateName string
	respondValue     string
)

var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Answer a paused run",
	Long: `Validate a JSON value against the schema the paused run saved and store
it as the run's response. Defaults declared by the schema are filled in.
A keyset accepts one response.

Examples:
  parley respond --run <run-id> --key approval --value '{"approved": true}'
  parley respond --run <run-id> --pause-key <pause-key> --value '{"approved": false}'`,
	Args: cobra.NoArgs,
	RunE: runRespond,
}

func init() {
	respondCmd.Flags().StringVar(&respondKey, "key", "", "Base key of the keyset")
	respondCmd.Flags().StringVar(&respondPauseKey, "pause-key", "", "Derive the keyset from a pause key")
	respondCmd.Flags().StringVar(&respondStateName, "state-name", "Paused", "Name of the paused state")
	respondCmd.Flags().StringVar(&respondValue, "value", "", "JSON object to respond with (required)")
	_ = respondCmd.MarkFlagRequired("value")
	rootCmd.AddCommand(respondCmd)
}

func runRespond(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireRun("respond"); err != nil {
		return err
	}

	keyset, err := keysetFromFlags(s.printer, respondKey, respondPauseKey, respondStateName)
	if err != nil {
		return err
	}

	err = runinput.Respond(cmd.Context(), s.client, keyset, "", []byte(respondValue))
	switch {
	case err == nil:
	case runinput.IsValidationError(err):
		return s.printer.Error("invalid response", err.Error(), nil)
	case errors.Is(err, runinput.ErrAlreadyExists):
		return s.printer.Error(
			"already answered",
			fmt.Sprintf("Run '%s' already has a response at %s.", s.client.RunID(), keyset.Response),
			nil,
		)
	case runinput.IsNotFound(err):
		return s.printer.Error(
			"no schema saved",
			fmt.Sprintf("Run '%s' has no schema at %s.", s.client.RunID(), keyset.Schema),
			[]string{"Check the key, or save one:\n  parley save-schema <INPUT> --run <run-id> --key <key>"},
		)
	default:
		return fmt.Errorf("failed to respond: %w", err)
	}

	s.printer.Success("Responded to run %s at %s\n", s.client.RunID(), keyset.Response)
	return nil
}
