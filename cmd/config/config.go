package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
)

// Command creates the config command, which prints the effective settings or
// writes them to a file.
func Command(settings *conf.Settings) *cobra.Command {
	var initPath string
	var write bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or save the effective configuration",
		Long: `Print the configuration after defaults, the config file, environment
variables and flags have been merged. With --init the same settings are saved
as YAML, by default to the user config directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write {
				path := initPath
				if path == "" {
					path = conf.DefaultConfigFile()
				}
				if err := conf.SaveYAMLConfig(path, settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
				return nil
			}

			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings to YAML: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&write, "init", false, "Write the configuration to a file")
	cmd.Flags().StringVar(&initPath, "path", "", "Destination for --init")

	return cmd
}
