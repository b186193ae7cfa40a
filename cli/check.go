package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dpulogin/probe"
)

func (a *app) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Classify connectivity once",
		Long: `Run the ping, DNS and HTTP probes once and print the result.

Exits 0 when online and 1 when offline or restricted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(a.cfg)
			if err != nil {
				return err
			}
			return a.printReport(st.prober.Classify(cmd.Context()))
		},
	}
}

func (a *app) printReport(report probe.Report) error {
	fmt.Fprintf(a.stdout, "result: %s\n", report.Result)
	fmt.Fprintf(a.stdout, "tier:   %s\n", report.Tier)
	if report.StatusCode != 0 {
		fmt.Fprintf(a.stdout, "status: %d\n", report.StatusCode)
	}
	if report.Location != "" {
		fmt.Fprintf(a.stdout, "portal: %s\n", report.Location)
	}
	if report.Err != nil {
		fmt.Fprintf(a.stdout, "error:  %v\n", report.Err)
	}

	if report.Result != probe.Online {
		return ErrNotOnline
	}
	return nil
}
