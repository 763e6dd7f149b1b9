package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rogerio-castellano/inventory-audit/internal/config"
	"github.com/rogerio-castellano/inventory-audit/internal/logging"
)

type app struct {
	configFile string
	cfg        config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "inventory-audit",
		Short:         "Automated inventory defect lifecycle: seed, scan, file tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (YAML, TOML or JSON)")

	root.AddCommand(
		newRunCmd(a),
		newSeedCmd(a),
		newScanCmd(a),
		newRunsCmd(a),
		newSandboxCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return nil
}

// validate checks the config, logging the reason it is rejected.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		a.log.Error().Err(err).Msg("invalid configuration")
		return err
	}
	return nil
}

// requireTracker applies the missing-token policy for commands that file
// tickets.
func (a *app) requireTracker() error {
	if err := a.cfg.RequireTracker(); err != nil {
		a.log.Error().Err(err).Msg("ticket filing is not configured")
		return err
	}
	return nil
}
