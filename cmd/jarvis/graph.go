package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/jarvis/internal/cli"
	"github.com/aretw0/jarvis/internal/presentation/diagram"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the agent graph visualization",
	Long: `Outputs a Mermaid diagram of the main agent. With --thread, the nodes where
that thread is parked are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		thread, _ := cmd.Flags().GetString("thread")

		app, err := setup(cmd, cli.WithOracle(scripted.Echo{}))
		if err != nil {
			return err
		}
		defer app.Close()

		g := app.Engine.Graph()
		var overlay *diagram.Overlay
		if thread != "" {
			cp, err := app.Store.Load(cmd.Context(), thread)
			if err != nil && !errors.Is(err, domain.ErrCheckpointNotFound) {
				return err
			}
			overlay = diagram.OverlayFor(g, cp)
		}

		fmt.Fprint(cmd.OutOrStdout(), diagram.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("thread", "", "Highlight the position of this thread")
}
