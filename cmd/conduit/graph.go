package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/conduit/internal/pipelines"
	"github.com/aretw0/conduit/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <pipeline>",
	Short: "Export a pipeline's graph",
	Long:  `Builds a built-in pipeline without running it and prints its graph as a Mermaid diagram or as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		def, err := pipelines.Build(args[0], pipelines.IO{})
		if err != nil {
			return err
		}

		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, nil))
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(def)
		default:
			return fmt.Errorf("unknown format %q (want mermaid or json)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
}
