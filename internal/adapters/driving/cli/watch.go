package cli

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/watch"
	"github.com/custodia-labs/grabdocs/internal/connectors/filesystem"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/workers"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep a folder uploaded and indexed",
	Long: `Ingests every file under the folder, then follows changes until
interrupted: new files are uploaded, changed files replace their previous
upload and removed files are deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil || fileService == nil {
		return errNotConfigured
	}

	source := filesystem.New(args[0])
	if err := source.Validate(); err != nil {
		return err
	}

	pool, err := workers.New("watch", max(pipelineWorkers, 1))
	if err != nil {
		return err
	}
	defer pool.Release()

	var mu sync.Mutex
	report := func(path string, res *domain.IngestResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		name := filepath.Base(path)
		switch {
		case err != nil:
			cmd.PrintErrf("  ✗ %s: %v\n", name, err)
		case res == nil:
			cmd.Printf("  - %s removed\n", name)
		case res.Failed():
			cmd.Printf("  ! %s -> file %s (enrichment failed at %s)\n", name, res.FileID, res.FailedStage)
		default:
			cmd.Printf("  ✓ %s -> file %s (%s, %d chunks)\n", name, res.FileID, res.Kind, res.ChunksIndexed)
		}
	}

	w, err := watch.New(source, ingestService, fileService, ownerID, pool,
		watch.WithDebounce(watchDebounce),
		watch.WithResultFunc(report),
	)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for %s (ctrl+c to stop)\n", source.Root(), ownerID)
	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watch stopped: %w", err)
	}
	return nil
}
