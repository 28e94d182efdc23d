package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/config"
)

var breakersCmd = &cobra.Command{
	Use:   "breakers",
	Short: "Inspect and reset circuit breakers",
}

var breakersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted breaker state",
	RunE:  runBreakersStatus,
}

var breakersResetCmd = &cobra.Command{
	Use:   "reset [capability]",
	Short: "Clear persisted breaker state, optionally for one capability",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBreakersReset,
}

func init() {
	breakersCmd.AddCommand(breakersStatusCmd)
	breakersCmd.AddCommand(breakersResetCmd)
	rootCmd.AddCommand(breakersCmd)
}

func openConfiguredStore() (*breaker.Store, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, err
	}

	storePath := manager.Get().StorePath
	if storePath == "" {
		return nil, fmt.Errorf("no store_path configured; breaker persistence is disabled")
	}
	return breaker.OpenStore(storePath)
}

func runBreakersStatus(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.LoadAll()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no breakers recorded")
		return nil
	}

	capabilities := make([]string, 0, len(snapshots))
	for capability := range snapshots {
		capabilities = append(capabilities, capability)
	}
	sort.Strings(capabilities)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %-9s %-9s %-10s %s\n",
		"CAPABILITY", "STATE", "FAILURES", "SUCCESSES", "OPENED")
	for _, capability := range capabilities {
		snap := snapshots[capability]
		opened := "-"
		if !snap.OpenedAt.IsZero() {
			opened = snap.OpenedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-24s %-9s %-9d %-10d %s\n",
			capability, snap.State, snap.Failures, snap.Successes, opened)
	}
	return nil
}

func runBreakersReset(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
		return nil
	}

	snapshots, err := store.LoadAll()
	if err != nil {
		return err
	}
	for capability := range snapshots {
		if err := store.Delete(capability); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset %d breakers\n", len(snapshots))
	return nil
}
