package main

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-fsm/closer"
	"github.com/amp-labs/amp-fsm/codec"
	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/store"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/spf13/cobra"
)

const appName = "fsmctl"

type loadFunc func(files ...string) (*config.Config, error)

// app is the state shared by every subcommand once the root has run.
type app struct {
	load     loadFunc
	envFiles []string
	cfg      *config.Config
	closer   *closer.Closer
}

func newRootCommand(load loadFunc) *cobra.Command {
	a := &app{load: load, closer: closer.NewCloser()}

	root := &cobra.Command{
		Use:           appName,
		Short:         "inspect state machine manifests and snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.closer.Close()
		},
	}

	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil,
		"dotenv files to load before reading the environment")

	root.AddCommand(
		newValidateCommand(),
		newVisualizeCommand(),
		newSnapshotCommand(a),
	)

	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := a.load(a.envFiles...)
	if err != nil {
		return err
	}

	if _, err := logger.ConfigureLogging(appName, cfg.Logging); err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, cfg.Telemetry); err != nil {
		return err
	}

	a.closer.AddFunc(func() error {
		return telemetry.Shutdown(context.WithoutCancel(ctx))
	})
	shutdown.BeforeShutdown(func() { _ = a.closer.Close() })

	a.cfg = cfg

	return nil
}

// openStore opens the configured snapshot store and registers it for close.
func (a *app) openStore(ctx context.Context) (*store.SnapshotStore, error) {
	c, err := codec.FromConfig(a.cfg.Codec)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, a.cfg.Store, c)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	a.closer.Add(closer.CloseOnce(st))

	return st, nil
}
