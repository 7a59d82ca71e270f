package commands

import (
	"github.com/dyluth/parley/internal/config"
	"github.com/dyluth/parley/internal/printer"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default parley.yml",
	Long: `Create a parley.yml with a Redis store, default polling settings and an
example Approval input type.

Use --force to overwrite an existing file.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	p := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	if err := config.Default().Write(configPath, forceInit); err != nil {
		return p.Error(
			"initialization failed",
			err.Error(),
			[]string{"Use --force to overwrite:\n  parley init --force"},
		)
	}

	p.Success("Created %s\n", configPath)
	p.Info("\nNext steps:\n")
	p.Info("  1. Point store.redis_url at your Redis\n")
	p.Info("  2. Declare the input types your runs accept under inputs:\n")
	p.Info("  3. Publish them for a run:\n       parley publish --run <run-id>\n")
	return nil
}
