package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/parley/internal/inbox"
	"github.com/dyluth/parley/internal/resolver"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Show one stored input as JSON",
	Long: `Show a single record of a run as pretty-printed JSON.

KEY may be any unique prefix of the record key, e.g. the first characters of
an envelope's uuid suffix together with its channel:

  parley get approval-response-3f2a --run <run-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireRun("read inputs"); err != nil {
		return err
	}

	prefix := args[0]
	key, err := resolver.ResolveKey(cmd.Context(), s.client, "", prefix)
	if err != nil {
		var ambigErr *resolver.AmbiguousError
		switch {
		case resolver.IsNotFoundError(err):
			return s.printer.Error(
				fmt.Sprintf("run input '%s' not found", prefix),
				fmt.Sprintf("No record of run '%s' matches the key.", s.client.RunID()),
				[]string{fmt.Sprintf("List the run's inputs:\n  parley inputs --run %s", s.client.RunID())},
			)
		case errors.As(err, &ambigErr):
			fmt.Fprintln(cmd.ErrOrStderr(), resolver.FormatAmbiguousError(ambigErr))
			return fmt.Errorf("ambiguous key prefix")
		}
		return s.printer.Error("invalid key", err.Error(), nil)
	}

	if err := inbox.GetEntry(cmd.Context(), s.client, "", key, cmd.OutOrStdout()); err != nil {
		if inbox.IsNotFound(err) {
			return s.printer.Error(
				fmt.Sprintf("run input '%s' not found", key),
				"The key was resolved but could not be fetched.",
				[]string{"This might indicate the record was deleted. Try again."},
			)
		}
		return fmt.Errorf("failed to get run input: %w", err)
	}
	return nil
}
