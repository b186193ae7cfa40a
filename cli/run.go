package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dpulogin/logging"
	"dpulogin/netinfo"
	"dpulogin/supervisor"
)

func (a *app) newRunCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the auto-login loop until interrupted",
		Long: `Classify connectivity every interval and submit the login form whenever
the network is offline or held behind the captive portal.

The loop stops on SIGINT or SIGTERM. With --once it stops after the first
cycle and fails if that cycle did.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runService(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func (a *app) runService(parent context.Context, once bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := buildStack(a.cfg)
	if err != nil {
		return err
	}

	logger := logging.Component("supervisor")
	a.logRoute(ctx)

	creds := a.credentials()
	if err := creds.Validate(); err != nil {
		logger.Error().Err(err).Msg("credentials are not configured, logins will be skipped")
	}

	opts := []supervisor.Option{
		supervisor.WithInterval(a.cfg.Interval),
		supervisor.WithLogger(logger),
	}
	var first supervisor.CycleResult
	if once {
		opts = append(opts, supervisor.WithCycleHook(func(res supervisor.CycleResult) {
			first = res
			cancel()
		}))
	}

	sup, err := supervisor.New(st.prober, st.client, creds, st.client.Host(), opts...)
	if err != nil {
		return err
	}
	if err := sup.Run(ctx); err != nil {
		return err
	}
	if once && first.Err != nil {
		return fmt.Errorf("cycle %s: %s: %w", first.ID, first.Kind, first.Err)
	}
	return nil
}

// logRoute records which interface carries traffic. It is informational only.
func (a *app) logRoute(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	route, err := netinfo.DefaultRoute(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("default route unknown")
		return
	}
	a.logger.Info().Str("interface", route.Interface).Bool("wireless", route.Wireless).Stringer("route", route).Msg("default route")
}
