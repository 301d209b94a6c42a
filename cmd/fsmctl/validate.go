package main

import (
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine/validator"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate MANIFEST...",
		Short: "check manifests for structural problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0

			for _, path := range args {
				result, err := validator.ValidateFile(path, strict)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", path, result.String())

				if result.HasErrors() {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d manifest(s)", errValidationFailed, failed, len(args))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")

	return cmd
}
