package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
)

// AppVersion is set from main before the root command runs
var AppVersion = "0.0.0-dev"

// NewRootCmd builds the full command tree. Running the root without a
// subcommand performs an update.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "model_updater",
		Short: "Point every OpenWebUI model at one base model",
		Long: `model_updater lists the custom models of an OpenWebUI instance and rewrites
their base_model_id to a single target model.

Commands:
  update         Update every model (default)
  list           Show what an update would do, without changing anything
  config show    Print the resolved configuration
  version        Print the version

Examples:
  model_updater --api-key $KEY --target-model openrouter.openai/gpt-4o-mini
  model_updater --profile local --workers 20
  model_updater list --debug
  model_updater --no-batch --delay 1s --report run.yaml

Config: ~/.openwebui-updater/config.yaml
Env:    ` + config.EnvAPIKey + `, ` + config.EnvCFClientID + `, ` + config.EnvCFClientSecret + ` (also read from .env)`,
		Version:       AppVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runUpdate,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s\n", versionLine()))

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newUpdateCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString(config.FlagConfig)
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
