package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/parley/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath string
	runID      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - typed input channels between workflow runs",
	Long: `Parley lets workflow runs pause for typed input and exchange typed
messages with each other through a shared store.

A paused run saves the schema it expects and waits; an operator or another
run responds. Runs can also publish the input types they accept, so other
runs can send them values they poll for.

Run identity comes from --run or the PARLEY_RUN_ID environment variable.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", config.DefaultPath, "Path to parley.yml")
	rootCmd.PersistentFlags().StringVar(&runID, "run", os.Getenv("PARLEY_RUN_ID"), "Run to act for (default $PARLEY_RUN_ID)")
}
