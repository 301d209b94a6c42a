package main

import (
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errStateRequired = errors.New("--state is required")

func newSnapshotCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "read and write stored engine snapshots",
	}

	cmd.AddCommand(
		newSnapshotGetCommand(a),
		newSnapshotPutCommand(a),
		newSnapshotRecodeCommand(a),
		newSnapshotDeleteCommand(a),
	)

	return cmd
}

func newSnapshotGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "print a snapshot as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			snap, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(snap)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}

func newSnapshotPutCommand(a *app) *cobra.Command {
	var state, data string

	cmd := &cobra.Command{
		Use:   "put KEY --state STATE [--data YAML]",
		Short: "store a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if state == "" {
				return errStateRequired
			}

			snap := statemachine.Snapshot{State: state}

			if data != "" {
				if err := yaml.Unmarshal([]byte(data), &snap.Data); err != nil {
					return fmt.Errorf("parsing --data: %w", err)
				}
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			return st.Put(cmd.Context(), args[0], snap)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "state name")
	cmd.Flags().StringVar(&data, "data", "", "snapshot data as YAML or JSON")

	return cmd
}

func newSnapshotRecodeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recode KEY...",
		Short: "rewrite snapshots with the configured codec",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			for _, key := range args {
				snap, err := st.Get(cmd.Context(), key)
				if err != nil {
					return err
				}

				if err := st.Put(cmd.Context(), key, snap); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "recoded %s\n", key)
			}

			return nil
		},
	}
}

func newSnapshotDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm KEY...",
		Aliases: []string{"delete"},
		Short:   "delete snapshots",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			for _, key := range args {
				if err := st.Delete(cmd.Context(), key); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
