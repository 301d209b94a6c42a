package main

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine/visualizer"
	"github.com/spf13/cobra"
)

func newVisualizeCommand() *cobra.Command {
	var (
		direction string
		initial   string
		noActions bool
		highlight []string
	)

	cmd := &cobra.Command{
		Use:   "visualize MANIFEST",
		Short: "render a manifest as a Mermaid state diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithShowActions(!noActions).
				WithHighlightPath(highlight)

			if initial != "" {
				opts = opts.WithInitialState(initial)
			}

			diagram, err := visualizer.GenerateMermaidFromFile(args[0], opts)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), diagram)

			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "TB", "diagram direction (TB, BT, LR, RL)")
	cmd.Flags().StringVar(&initial, "initial", "", "initial state, overriding the manifest")
	cmd.Flags().BoolVar(&noActions, "no-actions", false, "omit action notes")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "states to highlight")

	return cmd
}
