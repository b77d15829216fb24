package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the updater configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets masked",
		Long: `Print the configuration that a run would use, after applying profile defaults,
the config file, environment variables and flags. The output is valid as a
config file once the masked credentials are filled in.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	})

	return configCmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := cfg.Masked().YAML()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
