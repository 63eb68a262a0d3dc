package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/evostrat/internal/store"
)

var (
	checkpointDataDir string
	keepLast          int
	olderThanDays     int
	forceClean        bool
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage optimization checkpoints",
	Long: `Manage optimization checkpoints including listing and cleaning old runs.
Checkpoints let a later run seed its mean from a saved best solution.`,
}

var listCheckpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available checkpoints",
	Long:  `Display all checkpoints with run ID, strategy, objective, iteration, and best reward.`,
	RunE:  runListCheckpoints,
}

var cleanCheckpointsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old checkpoints",
	Long:  `Delete checkpoints based on retention policy: keep the most recent N runs or delete runs older than N days.`,
	RunE:  runCleanCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)

	checkpointsCmd.AddCommand(listCheckpointsCmd)
	checkpointsCmd.AddCommand(cleanCheckpointsCmd)

	checkpointsCmd.PersistentFlags().StringVar(&checkpointDataDir, "data-dir", "./data", "Base directory for checkpoint storage")

	cleanCheckpointsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the most recent N runs (0 = keep all)")
	cleanCheckpointsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanCheckpointsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListCheckpoints(cmd *cobra.Command, args []string) error {
	checkpointStore, err := store.NewFSStore(checkpointDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTRATEGY\tOBJECTIVE\tITERATION\tBEST REWARD\tTIMESTAMP")
	fmt.Fprintln(w, "------\t--------\t---------\t---------\t-----------\t---------")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6f\t%s\n",
			info.RunID,
			info.Strategy,
			info.Objective,
			info.Iteration,
			info.BestReward,
			info.Timestamp.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func runCleanCheckpoints(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("specify --keep-last or --older-than")
	}

	checkpointStore, err := store.NewFSStore(checkpointDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var toDelete []store.CheckpointInfo
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}
	if keepLast > 0 && len(infos) > keepLast {
		// infos ordered by directory listing; sort newest first by
		// timestamp before applying the retention count.
		sorted := make([]store.CheckpointInfo, len(infos))
		copy(sorted, infos)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				if sorted[j].Timestamp.After(sorted[i].Timestamp) {
					sorted[i], sorted[j] = sorted[j], sorted[i]
				}
			}
		}
		toDelete = append(toDelete, sorted[keepLast:]...)
	}

	if len(toDelete) == 0 {
		fmt.Println("Nothing to clean.")
		return nil
	}

	if !forceClean {
		fmt.Printf("About to delete %d checkpoint(s). Continue? [y/N] ", len(toDelete))
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	seen := make(map[string]bool)
	for _, info := range toDelete {
		if seen[info.RunID] {
			continue
		}
		seen[info.RunID] = true
		if err := checkpointStore.DeleteCheckpoint(info.RunID); err != nil {
			slog.Warn("Failed to delete checkpoint", "runID", info.RunID, "error", err)
			continue
		}
		deleted++
	}

	fmt.Printf("Deleted %d checkpoint(s).\n", deleted)
	return nil
}
