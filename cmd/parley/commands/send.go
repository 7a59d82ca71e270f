package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/spf13/cobra"
)

var (
	sendTo    string
	sendValue string
)

var sendCmd = &cobra.Command{
	Use:   "send INPUT",
	Short: "Send a typed input to another run",
	Long: `Validate a JSON value against a declared input type and deliver it to the
recipient run's inbox. The recipient must have published the input type.

The sender recorded in the envelope is --run; without it the value is sent
from outside any run.

Example:
  parley send Approval --to <run-id> --value '{"approved": true}'`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient run id (required)")
	sendCmd.Flags().StringVar(&sendValue, "value", "", "JSON object to send (required)")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("value")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	in, err := s.input(args[0])
	if err != nil {
		return err
	}

	value, err := in.Decode([]byte(sendValue))
	if err != nil {
		return s.printer.Error(fmt.Sprintf("invalid %s value", in.Name()), err.Error(), nil)
	}

	key, err := runinput.Send(cmd.Context(), s.client, in, value, sendTo)
	if err != nil {
		var unknown *runinput.UnknownInputTypeError
		switch {
		case errors.As(err, &unknown):
			return s.printer.Error(
				"input type not accepted",
				err.Error(),
				[]string{fmt.Sprintf("Publish it from the recipient run:\n  parley publish %s --run %s", in.Name(), sendTo)},
			)
		case runinput.IsNotFound(err):
			return s.printer.Error(
				"recipient has no keyset",
				fmt.Sprintf("Run '%s' has not published the input types it accepts.", sendTo),
				[]string{fmt.Sprintf("Publish from the recipient run:\n  parley publish --run %s", sendTo)},
			)
		}
		return fmt.Errorf("failed to send: %w", err)
	}

	s.printer.Success("Sent %s to run %s\n", in.Name(), sendTo)
	s.printer.Info("  key: %s\n", key)
	return nil
}
