package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"courtmap/storage"

	"github.com/spf13/cobra"
)

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect the stored last-good results",
	}

	cmd.AddCommand(snapshotsListCmd())
	cmd.AddCommand(snapshotsPruneCmd())
	return cmd
}

func snapshotsListCmd() *cobra.Command {
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.OpenSnapshotsDB()
			if err != nil {
				return err
			}
			defer db.Close()

			filter := storage.SnapshotFilter{Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			snaps, err := storage.ListSnapshots(db, filter)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(snaps)
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots stored.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			if !outputCompact {
				fmt.Fprintln(writer, "KEY\tVENUES\tFETCHED\tSOURCE")
			}
			now := time.Now()
			for _, snap := range snaps {
				fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", snap.Key, snap.Count, ageLabel(now.Sub(snap.FetchedAt)), snap.Source)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Only snapshots fetched within this duration (e.g. 72h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum snapshots to list")
	return cmd
}

func snapshotsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			db, err := storage.OpenSnapshotsDB()
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := storage.PruneSnapshots(db, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d snapshot(s).\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}
