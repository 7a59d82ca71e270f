package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/parley/internal/inbox"
	"github.com/dyluth/parley/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	inputsOutputFormat string
	inputsPrefix       string
	inputsKeyGlob      string
	inputsKind         string
	inputsFrom         string
	inputsSince        string
	inputsUntil        string
)

var inputsCmd = &cobra.Command{
	Use:   "inputs",
	Short: "List a run's stored inputs with filtering",
	Long: `List every record stored for a run: its published keyset, saved schemas,
responses and envelopes sent by other runs, in creation order.

Output Formats:
  default - Human-readable table with key, kind, sender, age and value
  jsonl   - Line-delimited JSON, one record per line

Filters:
  --prefix  - Key prefix, evaluated by the store
  --key     - Key glob pattern ("approval-*")
  --kind    - keyset, schema, response, envelope or other
  --from    - Sending run id (exact match)
  --since   - Records created after this time (duration or RFC3339)
  --until   - Records created before this time (duration or RFC3339)

Examples:
  # Everything for a run
  parley inputs --run <run-id>

  # Envelopes from one sender as JSONL for jq
  parley inputs --run <run-id> --kind envelope --from <sender> -o jsonl | jq .value`,
	Args: cobra.NoArgs,
	RunE: runInputs,
}

func init() {
	inputsCmd.Flags().StringVarP(&inputsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	inputsCmd.Flags().StringVar(&inputsPrefix, "prefix", "", "Filter by key prefix")
	inputsCmd.Flags().StringVar(&inputsKeyGlob, "key", "", "Filter by key (glob pattern)")
	inputsCmd.Flags().StringVar(&inputsKind, "kind", "", "Filter by record kind")
	inputsCmd.Flags().StringVar(&inputsFrom, "from", "", "Filter by sending run id")
	inputsCmd.Flags().StringVar(&inputsSince, "since", "", "Show records after time (duration or RFC3339)")
	inputsCmd.Flags().StringVar(&inputsUntil, "until", "", "Show records before time (duration or RFC3339)")
	rootCmd.AddCommand(inputsCmd)
}

func runInputs(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var outputFormat inbox.OutputFormat
	switch inputsOutputFormat {
	case "default":
		outputFormat = inbox.OutputFormatDefault
	case "jsonl":
		outputFormat = inbox.OutputFormatJSONL
	default:
		return s.printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", inputsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	kind := inbox.Kind(inputsKind)
	switch kind {
	case "", inbox.KindKeyset, inbox.KindSchema, inbox.KindResponse, inbox.KindEnvelope, inbox.KindOther:
	default:
		return s.printer.Error(
			"invalid kind",
			fmt.Sprintf("Unknown kind: %s", inputsKind),
			[]string{"Valid kinds: keyset, schema, response, envelope, other"},
		)
	}

	if err := s.requireRun("list inputs"); err != nil {
		return err
	}

	since, until, err := timespec.ParseRange(inputsSince, inputsUntil, time.Now())
	if err != nil {
		return s.printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	filters := &inbox.Criteria{
		Since:        since,
		Until:        until,
		KeyGlob:      inputsKeyGlob,
		Kind:         kind,
		SendingRunID: inputsFrom,
	}

	if err := inbox.ListEntries(cmd.Context(), s.client, "", inputsPrefix, outputFormat, filters, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to list inputs: %w", err)
	}
	return nil
}
