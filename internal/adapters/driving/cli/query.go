package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

var (
	queryFiles  []string
	queryKind   string
	queryTopK   int
	queryAnswer bool
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about your files",
	Long: `Retrieves the passages most similar to the question. With --file the
search is limited to those files; with --kind to one category (documents,
receipts, forms). --answer asks the configured LLM for a final answer
grounded in the retrieved passages.`,
	Example: `  grabdocs query "who was assignment 1 submitted to" --file 166
  grabdocs query "total spent on groceries" --kind receipts --answer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryFiles, "file", "f", nil, "limit to these file ids (repeatable)")
	queryCmd.Flags().StringVarP(&queryKind, "kind", "k", "", "limit to one kind: documents, receipts, forms, all")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 0, "number of passages (default retrieval.top_k)")
	queryCmd.Flags().BoolVarP(&queryAnswer, "answer", "a", false, "generate an answer with the LLM")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errNotConfigured
	}

	topK := queryTopK
	if topK <= 0 {
		topK = defaultTopK
	}

	ids := make([]any, 0, len(queryFiles))
	for _, id := range queryFiles {
		ids = append(ids, id)
	}

	res, err := queryService.Query(cmd.Context(), domain.QueryRequest{
		OwnerID:  ownerID,
		Text:     strings.Join(args, " "),
		FileIDs:  ids,
		Kind:     queryKind,
		TopK:     topK,
		Generate: queryAnswer,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(newQueryJSON(res), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printQueryResult(cmd, res)
	return nil
}

type passageJSON struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Kind     string  `json:"kind"`
	Ordinal  int     `json:"ordinal"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

type queryJSONResult struct {
	Answer             string        `json:"answer,omitempty"`
	IsDocumentSpecific bool          `json:"is_document_specific"`
	QueryType          string        `json:"query_type"`
	FileIDs            []string      `json:"file_ids,omitempty"`
	Kind               string        `json:"kind,omitempty"`
	Passages           []passageJSON `json:"passages"`
}

func newQueryJSON(res *domain.QueryResult) queryJSONResult {
	out := queryJSONResult{
		Answer:             res.Answer,
		IsDocumentSpecific: res.IsDocumentSpecific,
		QueryType:          string(res.QueryType),
		Passages:           make([]passageJSON, 0, len(res.AnswerContext)),
	}
	for _, id := range res.FiltersApplied.FileIDs {
		out.FileIDs = append(out.FileIDs, id.String())
	}
	if res.FiltersApplied.Kind != nil {
		out.Kind = res.FiltersApplied.Kind.String()
	}
	for _, rc := range res.AnswerContext {
		out.Passages = append(out.Passages, passageJSON{
			FileID:   rc.Chunk.FileID.String(),
			Filename: chunkFilename(rc),
			Kind:     rc.Chunk.Kind.String(),
			Ordinal:  rc.Chunk.Ordinal,
			Score:    rc.Score,
			Text:     rc.Chunk.Text,
		})
	}
	return out
}

func chunkFilename(rc domain.RetrievedChunk) string {
	if rc.File.OriginalFilename != "" {
		return rc.File.OriginalFilename
	}
	return rc.Chunk.Filename
}

func printQueryResult(cmd *cobra.Command, res *domain.QueryResult) {
	if res.Answer != "" {
		cmd.Println("Answer:")
		cmd.Printf("  %s\n\n", res.Answer)
	}
	if !res.IsDocumentSpecific {
		cmd.Println("No matching passages in your files; any answer comes from general knowledge.")
		cmd.Println()
	}

	scope := string(res.QueryType)
	if ids := res.FiltersApplied.FileIDs; len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = id.String()
		}
		scope += " " + strings.Join(parts, ",")
	}
	if res.FiltersApplied.Kind != nil {
		scope += " " + res.FiltersApplied.Kind.String()
	}

	if len(res.AnswerContext) == 0 {
		cmd.Printf("No passages found (scope: %s).\n", scope)
		return
	}

	cmd.Printf("Passages (scope: %s):\n\n", scope)
	for i, rc := range res.AnswerContext {
		cmd.Printf("  [%d] %s #%d (file %s, %s, %.3f)\n", i+1, chunkFilename(rc), rc.Chunk.Ordinal, rc.Chunk.FileID, rc.Chunk.Kind, rc.Score)
		cmd.Printf("      %s\n\n", preview(rc.Chunk.Text, 200))
	}
}

// preview collapses whitespace and cuts s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
