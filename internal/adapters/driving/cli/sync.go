package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

var syncWait bool

var syncCmd = &cobra.Command{
	Use:   "sync [source-id]",
	Short: "Trigger a sync for a source",
	Long: `Queues a sync for the source. Syncing re-ingests the source's content
from its origin, fully replacing the previously indexed chunks.

With --wait the command polls until the sync finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var logsCmd = &cobra.Command{
	Use:   "logs [source-id]",
	Short: "Show the sync history for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	syncCmd.Flags().BoolVar(&syncWait, "wait", false, "wait for the sync to finish")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(logsCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	sourceID := args[0]
	ctx := context.Background()

	if err := knowledgeService.StartSync(ctx, flagTenant, sourceID); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if !syncWait {
		cmd.Printf("Sync queued for source: %s\n", sourceID)
		return nil
	}

	cmd.Printf("Syncing source: %s...\n", sourceID)
	return waitForSync(ctx, cmd, sourceID)
}

// waitForSync polls the source status until the sync settles.
func waitForSync(ctx context.Context, cmd *cobra.Command, sourceID string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			source, err := knowledgeService.GetSource(ctx, flagTenant, sourceID)
			if err != nil {
				return fmt.Errorf("failed to check sync status: %w", err)
			}
			switch source.Status {
			case domain.StatusSynced:
				cmd.Printf("Synced %d items.\n", source.ItemCount)
				return nil
			case domain.StatusError:
				return fmt.Errorf("sync failed for source %s", sourceID)
			case domain.StatusPending, domain.StatusSyncing:
				// still running
			}
		}
	}
}

func runLogs(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	sourceID := args[0]
	ctx := context.Background()

	entries, err := knowledgeService.SyncLogs(ctx, flagTenant, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list sync logs: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No sync history.")
		return nil
	}

	cmd.Printf("Sync history for %s:\n", sourceID)
	cmd.Println()
	for i := range entries {
		e := &entries[i]
		cmd.Printf("  %s  %-12s", e.Timestamp.Format(time.RFC3339), e.Status)
		if e.ItemsProcessed > 0 {
			cmd.Printf("  %d items", e.ItemsProcessed)
		}
		if e.Message != "" {
			cmd.Printf("  %s", e.Message)
		}
		cmd.Println()
	}
	return nil
}
