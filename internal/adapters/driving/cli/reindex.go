package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex <file-id>...",
	Short: "Rerun classification, chunking and indexing for stored files",
	Long: `Reprocesses files from their stored content. A file's chunks are replaced
as a whole, so reindexing never leaves duplicate entries behind.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}

	failed := 0
	for _, arg := range args {
		res, err := ingestService.Reindex(cmd.Context(), ownerID, domain.FileID(arg))
		if err != nil {
			return fmt.Errorf("failed to reindex file %s: %w", arg, err)
		}
		if res.Failed() {
			failed++
			cmd.Printf("  ! file %s: enrichment failed at %s\n", res.FileID, res.FailedStage)
			continue
		}
		cmd.Printf("  ✓ file %s: %s, %d chunks\n", res.FileID, res.Kind, res.ChunksIndexed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to reindex", failed, len(args))
	}
	return nil
}
