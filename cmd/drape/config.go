package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/ioctx"
)

func configCmd() *cobra.Command {
	var (
		configPath string
		collation  config.Collation
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the collated language configuration",
		Long: `Print the language configuration in effect, as TOML, annotated with the
sources it was collated from. Sources are the built-in configuration, the user
configuration ($XDG_CONFIG_HOME/drape/languages.toml), the nearest .drape.toml
and --config, from lowest to highest priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Fetch(configPath, collation)
			if err != nil {
				return err
			}
			_, err = io.WriteString(ioctx.StdoutFromContext(cmd.Context()), cfg.String())
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Additional languages.toml with the highest priority")
	cmd.Flags().Var(&collation, "collation", "How configuration sources combine: merge or override")

	return cmd
}
