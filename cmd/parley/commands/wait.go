package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dyluth/parley/internal/metrics"
	"github.com/dyluth/parley/internal/timespec"
	"github.com/dyluth/parley/pkg/runinput"
	"github.com/spf13/cobra"
)

var (
	waitTimeout  string
	waitInterval time.Duration
	waitOutput   string
	waitCount    int
	waitMetrics  bool
)

var waitCmd = &cobra.Command{
	Use:   "wait INPUT",
	Short: "Wait for inputs sent to this run",
	Long: `Poll the run's inbox for a declared input type and print each value as it
arrives. Each value is printed once per invocation.

The wait ends after --count values, or when no new value arrives within the
timeout. The timeout applies per value and accepts a duration ("10m") or an
RFC3339 deadline ("2025-10-29T13:00:00Z"). A timeout with nothing received
fails; with poll.raise_timeout_error set in parley.yml, any timeout fails.

Output Formats:
  default - Human-readable lines with sender and key
  json    - Line-delimited JSON: {"key", "sending_run_id", "value"}

Examples:
  # Wait up to five minutes for one approval
  parley wait Approval --run <run-id> --timeout 5m --count 1

  # Drain everything already delivered
  parley wait Approval --run <run-id> --timeout 0s --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().StringVar(&waitTimeout, "timeout", "", "Wait budget per value (duration or RFC3339 deadline; default from config)")
	waitCmd.Flags().DurationVar(&waitInterval, "interval", 0, "Re-check interval (default from config)")
	waitCmd.Flags().StringVarP(&waitOutput, "output", "o", "default", "Output format (default or json)")
	waitCmd.Flags().IntVarP(&waitCount, "count", "n", 0, "Stop after this many values (0 = until timeout)")
	waitCmd.Flags().BoolVar(&waitMetrics, "metrics", false, "Print Prometheus metrics to stderr when done")
	rootCmd.AddCommand(waitCmd)
}

type waitLine struct {
	Key          string          `json:"key"`
	SendingRunID *string         `json:"sending_run_id"`
	Value        json.RawMessage `json:"value"`
}

func runWait(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if waitOutput != "default" && waitOutput != "json" {
		return s.printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", waitOutput),
			[]string{"Valid formats: default, json"},
		)
	}

	if err := s.requireRun("wait for input"); err != nil {
		return err
	}

	in, err := s.input(args[0])
	if err != nil {
		return err
	}

	opts, err := s.cfg.Poll.Options()
	if err != nil {
		return err
	}
	if waitTimeout != "" {
		budget, err := timespec.ParseBudget(waitTimeout, time.Now())
		if err != nil {
			return s.printer.Error("invalid timeout", err.Error(), nil)
		}
		opts = append(opts, runinput.WithTimeout(budget))
	}
	if waitInterval > 0 {
		opts = append(opts, runinput.WithPollInterval(waitInterval))
	}

	if waitMetrics {
		defer func() {
			if err := metrics.WritePrometheus(cmd.ErrOrStderr()); err != nil {
				s.logger.Warn("failed to write metrics", "error", err)
			}
		}()
	}

	poller := runinput.Receive(s.client, in, opts...)

	received := 0
	timedOut := false
	for waitCount == 0 || received < waitCount {
		env, err := poller.Next(cmd.Context())
		if err != nil {
			if runinput.IsTimeout(err) {
				timedOut = true
				break
			}
			// Invalid records are consumed, so the next call moves past them
			if runinput.IsValidationError(err) {
				s.printer.Warning("Skipping invalid input: %v\n", err)
				continue
			}
			return fmt.Errorf("failed while waiting for %s: %w", in.Name(), err)
		}

		if err := printEnvelope(s, env); err != nil {
			return err
		}
		received++
	}

	// poll.raise_timeout_error makes any timeout fatal, even after values arrived
	if received == 0 || (timedOut && s.cfg.Poll.RaiseTimeoutError) {
		explanation := fmt.Sprintf("No %s input arrived.", in.Name())
		if received > 0 {
			explanation = fmt.Sprintf("Timed out after %d %s input(s).", received, in.Name())
		}
		return s.printer.ErrorWithContext(
			"timed out",
			explanation,
			map[string]string{"Run": s.client.RunID(), "Input": in.Name()},
			nil,
		)
	}
	return nil
}

func printEnvelope(s *session, env *runinput.Envelope[map[string]any]) error {
	value, err := json.Marshal(env.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	if waitOutput == "json" {
		line := waitLine{Key: env.Key, Value: value}
		if env.HasSender() {
			line.SendingRunID = &env.SendingRunID
		}
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("failed to marshal input: %w", err)
		}
		s.printer.Info("%s\n", data)
		return nil
	}

	from := "outside any run"
	if env.HasSender() {
		from = "run " + env.SendingRunID
	}
	s.printer.Success("%s from %s\n", env.Key, from)
	s.printer.Info("  %s\n", value)
	return nil
}
