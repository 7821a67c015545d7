package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/connectors/document"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [source-id]",
	Short: "Watch a document source's upload directory",
	Long: `Watches the upload directory of a document source and triggers a
re-sync whenever supported files are added, changed, or removed.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	sourceID := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := knowledgeService.GetSource(ctx, flagTenant, sourceID)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	if source.Type != domain.SourceTypeDocument {
		return fmt.Errorf("watch only supports document sources, got %s", source.Type)
	}
	if source.Config.UploadDir == "" {
		return errors.New("source has no upload directory configured")
	}

	watcher := document.NewWatcher(source.Config.UploadDir, func() {
		if err := knowledgeService.StartSync(context.Background(), flagTenant, sourceID); err != nil {
			logger.Warn("re-sync after upload change failed: %v", err)
		}
	})

	cmd.Printf("Watching %s for source %s (Ctrl-C to stop)\n", source.Config.UploadDir, sourceID)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
