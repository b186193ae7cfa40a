// Package cli implements the dpulogin command-line interface using Cobra.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dpulogin/config"
	"dpulogin/logging"
	"dpulogin/portal"
)

// ErrNotOnline is returned by `check` when the network is not fully usable.
// It maps to exit status 1 without an error message.
var ErrNotOnline = errors.New("not online")

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	lookupEnv func(string) (string, bool)
	stdout    io.Writer

	loader *config.Loader
	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the command tree. lookupEnv supplies DPU_USER and
// DPU_PASS; nil means os.LookupEnv.
func NewRootCommand(version string, lookupEnv func(string) (string, bool)) *cobra.Command {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	a := &app{lookupEnv: lookupEnv, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "dpulogin",
		Short: "Keep a DPU captive portal session logged in",
		Long: `dpulogin watches connectivity and signs in to the DPU captive portal
whenever the network is restricted.

Credentials are read from the DPU_USER and DPU_PASS environment variables.
Settings come from ~/.config/dpulogin/config.yaml and DPULOGIN_* variables.

Run 'dpulogin' without arguments to start the service loop.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runService(cmd.Context(), false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/dpulogin/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "override logging level (debug, info, warn, error, critical)")
	flags.StringVar(&a.logFormat, "log-format", "", "override logging format (auto, json, console)")

	root.AddCommand(a.newRunCommand(), a.newCheckCommand(), a.newLoginCommand(), a.newConfigCommand())
	return root
}

// Execute runs the command line and returns the process exit status.
func Execute(version string) int {
	root := NewRootCommand(version, nil)
	if err := root.Execute(); err != nil {
		if errors.Is(err, ErrNotOnline) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// init loads configuration with precedence defaults < file < env < flags and
// sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	a.loader = config.NewLoader()
	if a.cfgFile != "" {
		a.loader.SetConfigFile(a.cfgFile)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		a.loader.Set("logging.level", a.logLevel)
	}
	if flags.Changed("log-format") {
		a.loader.Set("logging.format", a.logFormat)
	}

	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logging.Init(cfg.LoggingSettings()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.logger = logging.Component("cli")

	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("config_file", used).Msg("loaded config file")
	}
	return nil
}

func (a *app) credentials() portal.Credentials {
	return portal.CredentialsFromEnv(a.lookupEnv)
}
