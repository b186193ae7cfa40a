package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after applying defaults, the config file,
DPULOGIN_* variables and flags. Credentials are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			if used := a.loader.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.stdout, "# loaded from %s\n", used)
			}
			_, err = a.stdout.Write(out)
			return err
		},
	})

	return configCmd
}
