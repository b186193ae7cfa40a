package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Submit the gateway login form once",
		Long: `Post DPU_USER and DPU_PASS to the gateway once, regardless of the
current connectivity, and print the final status and location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(a.cfg)
			if err != nil {
				return err
			}

			outcome, err := st.client.Login(cmd.Context(), a.credentials())
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintf(a.stdout, "status:   %d\n", outcome.StatusCode)
			if outcome.Location != "" {
				fmt.Fprintf(a.stdout, "location: %s\n", outcome.Location)
			}
			if !outcome.Success {
				return fmt.Errorf("login: gateway answered %d", outcome.StatusCode)
			}
			return nil
		},
	}
}
