package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/jarvis/pkg/capconfig"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Enable or disable capabilities",
	Long: `Reads and edits the capability file. A running server reloads it on change,
so edits apply to the next request.`,
}

var toolsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List capabilities and whether they are enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTools(cmd)
		if err != nil {
			return err
		}
		snap := store.Snapshot()
		for _, key := range slices.Sorted(maps.Keys(snap)) {
			state := "disabled"
			if snap[key] {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", key, state)
		}
		return nil
	},
}

var toolsEnableCmd = &cobra.Command{
	Use:   "enable <key>...",
	Short: "Enable capabilities",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTools(cmd, args, true)
	},
}

var toolsDisableCmd = &cobra.Command{
	Use:   "disable <key>...",
	Short: "Disable capabilities",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTools(cmd, args, false)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsLsCmd)
	toolsCmd.AddCommand(toolsEnableCmd)
	toolsCmd.AddCommand(toolsDisableCmd)
}

func openTools(cmd *cobra.Command) (*capconfig.Store, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return capconfig.Open(cfg.CapabilityFile, capconfig.WithLogger(logger))
}

func setTools(cmd *cobra.Command, keys []string, enabled bool) error {
	store, err := openTools(cmd)
	if err != nil {
		return err
	}
	changes := make(map[string]bool, len(keys))
	for _, k := range keys {
		changes[k] = enabled
	}
	if err := store.SetBulk(changes); err != nil {
		return fmt.Errorf("%w (known: %v)", err, slices.Sorted(maps.Keys(capconfig.Defaults)))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", store.Path())
	return nil
}
