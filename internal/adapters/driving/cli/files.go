package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

var (
	filesCategory string
	filesJSON     bool
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded files",
	Long:  `List, inspect and delete uploaded files, and count them per category.`,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	Long: `Lists your files, newest first. --category accepts documents, receipts,
forms, unknown or all.`,
	Args: cobra.NoArgs,
	RunE: runFilesList,
}

var filesShowCmd = &cobra.Command{
	Use:   "show <file-id>",
	Short: "Show one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesShow,
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>...",
	Short: "Delete files with their stored content and indexed chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilesDelete,
}

var filesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Count files per category",
	Args:  cobra.NoArgs,
	RunE:  runFilesCategories,
}

func init() {
	filesListCmd.Flags().StringVarP(&filesCategory, "category", "c", "", "filter by category")
	filesListCmd.Flags().BoolVar(&filesJSON, "json", false, "output as JSON")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesShowCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesCmd.AddCommand(filesCategoriesCmd)
	rootCmd.AddCommand(filesCmd)
}

// fileJSON is the listing shape written by --json.
type fileJSON struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	FailedStage string `json:"failed_stage,omitempty"`
	Chunks      int    `json:"chunks"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if fileService == nil {
		return errNotConfigured
	}

	records, err := fileService.List(cmd.Context(), ownerID, filesCategory)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if filesJSON {
		out := make([]fileJSON, 0, len(records))
		for i := range records {
			r := &records[i]
			out = append(out, fileJSON{
				ID:          r.ID.String(),
				Filename:    r.OriginalFilename,
				Kind:        r.Kind.String(),
				Status:      r.Status.String(),
				FailedStage: r.FailedStage.String(),
				Chunks:      r.ChunkCount,
				SizeBytes:   r.SizeBytes,
				CreatedAt:   r.CreatedAt.Format(time.RFC3339),
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal files: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No files found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tKIND\tSTATUS\tCHUNKS")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.ID, r.OriginalFilename, r.Kind, statusLabel(r), r.ChunkCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	cmd.Printf("\nTotal: %d files\n", len(records))
	return nil
}

func runFilesShow(cmd *cobra.Command, args []string) error {
	if fileService == nil {
		return errNotConfigured
	}

	rec, err := fileService.Get(cmd.Context(), ownerID, domain.FileID(args[0]))
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	cmd.Printf("File: %s\n\n", rec.ID)
	cmd.Printf("  Filename: %s\n", rec.OriginalFilename)
	cmd.Printf("  Kind:     %s (%s)\n", rec.Kind, rec.Kind.Description())
	cmd.Printf("  Status:   %s\n", statusLabel(rec))
	cmd.Printf("  Chunks:   %d\n", rec.ChunkCount)
	cmd.Printf("  Type:     %s\n", rec.MIMEType)
	cmd.Printf("  Size:     %d bytes\n", rec.SizeBytes)
	cmd.Printf("  Stored:   %s\n", rec.StoredFilename)
	cmd.Printf("  Created:  %s\n", rec.CreatedAt.Format(time.DateTime))
	cmd.Printf("  Updated:  %s\n", rec.UpdatedAt.Format(time.DateTime))
	return nil
}

func runFilesDelete(cmd *cobra.Command, args []string) error {
	if fileService == nil {
		return errNotConfigured
	}

	for _, arg := range args {
		if err := fileService.Delete(cmd.Context(), ownerID, domain.FileID(arg)); err != nil {
			return fmt.Errorf("failed to delete file %s: %w", arg, err)
		}
		cmd.Printf("Deleted file %s\n", arg)
	}
	return nil
}

func runFilesCategories(cmd *cobra.Command, _ []string) error {
	if fileService == nil {
		return errNotConfigured
	}

	counts, err := fileService.Categories(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to count files: %w", err)
	}

	total := 0
	for _, k := range domain.AllKinds() {
		cmd.Printf("  %-10s %4d  %s\n", k, counts[k], k.Description())
		total += counts[k]
	}
	cmd.Printf("\nTotal: %d files\n", total)
	return nil
}

func statusLabel(r *domain.FileRecord) string {
	if r.Status == domain.StateFailed && r.FailedStage != "" {
		return fmt.Sprintf("failed (%s)", r.FailedStage)
	}
	return r.Status.String()
}
