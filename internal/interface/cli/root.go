package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/devtask/internal/infra/config"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig config.Config

// globalPaths holds the resolved devtask home layout
var globalPaths app.Paths

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devtask",
		Short: "Resumable multi-phase development task orchestrator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration before any command runs
			// Priority: setting.json > defaults
			globalPaths = app.ResolvePaths()

			cfg, err := infraConfig.LoadSettings(globalPaths.Home)
			if err != nil {
				return err
			}
			globalConfig = cfg
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
