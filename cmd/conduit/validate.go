package main

import (
	"fmt"

	"github.com/aretw0/conduit/internal/pipelines"
	"github.com/aretw0/conduit/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline>",
	Short: "Check a pipeline's graph for consistency",
	Long:  `Builds a built-in pipeline without running it and reports dangling ports or unreachable blocks.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := pipelines.Build(args[0], pipelines.IO{})
		if err != nil {
			return err
		}
		if err := validator.ValidateDefinition(def); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
