package main

import (
	"fmt"

	"github.com/aretw0/jarvis/internal/cli"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"thread"},
	Short:   "Manage stored threads",
	Long:    `List, inspect, and remove the threads kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd, cli.WithOracle(scripted.Echo{}))
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ListThreads(cmd.Context(), cmd.OutOrStdout(), app.Store)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <thread-id>",
	Short: "Print the checkpoint of a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd, cli.WithOracle(scripted.Echo{}))
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.InspectThread(cmd.Context(), cmd.OutOrStdout(), app.Store, args[0])
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <thread-id>...",
	Short: "Remove one or more threads",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd, cli.WithOracle(scripted.Echo{}))
		if err != nil {
			return err
		}
		defer app.Close()

		manager := app.Engine.Manager()
		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = manager.List(cmd.Context()); err != nil {
				return err
			}
		}

		failed := 0
		for _, id := range args {
			if err := manager.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed thread '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d thread(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored thread")
}
