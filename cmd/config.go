package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ftahirops/disktriage/config"
)

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	c.AddCommand(newConfigInitCmd())
	return c
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration (defaults, file, environment) as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configPath
			if path == "" {
				path = config.Path()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	c.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return c
}
