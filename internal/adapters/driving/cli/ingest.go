package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/watch"
	"github.com/custodia-labs/grabdocs/internal/connectors/filesystem"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/workers"
)

var (
	ingestJSON    bool
	ingestWorkers int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Upload files and index them",
	Long: `Uploads each file, classifies it, splits it into chunks and indexes the
chunks. Directories are walked recursively, skipping hidden entries.

A file whose enrichment fails is still stored and reported with its failed
stage; it can be retried later with 'grabdocs reindex'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "concurrent uploads (default pipeline.workers)")
	rootCmd.AddCommand(ingestCmd)
}

// ingestOutcome is one line of the ingest report.
type ingestOutcome struct {
	Path   string               `json:"path"`
	Result *domain.IngestResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}

	paths, err := expandPaths(cmd, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No files to ingest.")
		return nil
	}

	size := ingestWorkers
	if size <= 0 {
		size = pipelineWorkers
	}
	pool, err := workers.New("ingest", max(size, 1))
	if err != nil {
		return err
	}
	defer pool.Release()

	ctx := cmd.Context()
	outcomes := make([]ingestOutcome, len(paths))
	for i, path := range paths {
		outcomes[i].Path = path
		err := pool.Submit(func() {
			res, err := watch.IngestFile(ctx, ingestService, ownerID, path)
			outcomes[i].Result = res
			if err != nil {
				outcomes[i].Error = err.Error()
			}
		})
		if err != nil {
			outcomes[i].Error = err.Error()
		}
	}
	pool.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}

	if ingestJSON {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printIngestOutcomes(cmd, outcomes)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be uploaded", failed, len(paths))
	}
	return nil
}

// expandPaths resolves directories into the regular files below them.
func expandPaths(cmd *cobra.Command, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		found, err := filesystem.New(arg).Scan(cmd.Context())
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func printIngestOutcomes(cmd *cobra.Command, outcomes []ingestOutcome) {
	for _, o := range outcomes {
		name := filepath.Base(o.Path)
		switch {
		case o.Error != "":
			cmd.Printf("  ✗ %s: %s\n", name, o.Error)
		case o.Result.Failed():
			cmd.Printf("  ! %s -> file %s (stored, enrichment failed at %s)\n", name, o.Result.FileID, o.Result.FailedStage)
		default:
			cmd.Printf("  ✓ %s -> file %s (%s, %d chunks)\n", name, o.Result.FileID, o.Result.Kind, o.Result.ChunksIndexed)
		}
		if o.Result != nil && o.Result.Partial {
			cmd.Printf("      %d chunks skipped\n", o.Result.ChunksSkipped)
		}
		if o.Result != nil {
			for _, w := range o.Result.Warnings {
				cmd.Printf("      warning: %s\n", w)
			}
		}
	}
	cmd.Printf("\nUploaded %d files.\n", countUploaded(outcomes))
}

func countUploaded(outcomes []ingestOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Error == "" && o.Result != nil {
			n++
		}
	}
	return n
}
