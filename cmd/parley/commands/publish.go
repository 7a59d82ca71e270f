package commands

import (
	"fmt"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [INPUT...]",
	Short: "Publish the input types a run accepts",
	Long: `Store the run's SendInputKeyset so other runs can send it inputs.

With no arguments every input type declared in parley.yml is published.
A run publishes once; publishing again fails.`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireRun("publish a keyset"); err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = s.cfg.InputNames()
	}

	inputs := make([]runinput.Named, 0, len(names))
	for _, name := range names {
		in, err := s.input(name)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	keysets, err := s.client.PublishKeyset(cmd.Context(), "", inputs...)
	if err != nil {
		return fmt.Errorf("failed to publish keyset: %w", err)
	}

	s.printer.Success("Published %d input type(s) for run %s\n", len(keysets), s.client.RunID())
	for _, name := range names {
		s.printer.Info("  %-20s %s\n", name, keysets[name].Response)
	}
	return nil
}
