package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

var (
	watchDocsDir string
	watchQAFile  string
	watchInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index when the corpus changes",
	Long: `Watches the document directory and the curated Q&A file and rebuilds
the indices after each burst of changes. Queries keep using the previous
index until a rebuild succeeds. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDocsDir, "docs", "", "directory of documents to watch")
	watchCmd.Flags().StringVar(&watchQAFile, "qa", "", "CSV file of curated pairs to watch")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "build the index once before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{DocsDir: watchDocsDir, QAFile: watchQAFile})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchInitial {
		cmd.Println("Building index...")
		if meta, err := syncWithProgress(cmd, svc.Sync); err != nil {
			cmd.PrintErrf("Initial build failed: %v\n", err)
		} else {
			printMeta(cmd.OutOrStdout(), meta)
		}
	}

	cmd.Println("Watching for changes (Ctrl+C to stop)...")
	if err := svc.Sync.Watch(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	status := svc.Sync.Status()
	cmd.Printf("Stopped after %d rebuild(s).\n", status.Syncs)
	return nil
}

// syncWithProgress runs a sync while printing the elapsed time.
func syncWithProgress(cmd *cobra.Command, sync driving.SyncService) (domain.IndexMeta, error) {
	type result struct {
		meta domain.IndexMeta
		err  error
	}
	done := make(chan result, 1)
	go func() {
		meta, err := sync.Sync(cmd.Context())
		done <- result{meta, err}
	}()

	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			if time.Since(start) >= time.Second {
				cmd.Println()
			}
			return r.meta, r.err
		case <-ticker.C:
			if sync.Status().Running {
				cmd.Printf("\rEmbedding... %s", time.Since(start).Round(time.Second))
			}
		case <-cmd.Context().Done():
			return domain.IndexMeta{}, context.Cause(cmd.Context())
		}
	}
}
