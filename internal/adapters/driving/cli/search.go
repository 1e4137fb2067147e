package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docket/internal/core/domain"
)

var (
	searchApp   string
	searchTypes []string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Embeds the query and returns the most similar chunks, best first.
Results can be restricted to one application and to document types.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchApp, "app", "a", "", "restrict results to one application")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "restrict results to document types (repeatable)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		ApplicationRef: searchApp,
		DocumentTypes:  searchTypes,
		MaxResults:     searchLimit,
	}

	results, err := svc.Search.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	type jsonResult struct {
		ChunkID        string  `json:"chunk_id"`
		DocumentID     string  `json:"document_id"`
		ApplicationRef string  `json:"application_ref"`
		SourceFilename string  `json:"source_filename"`
		DocumentType   string  `json:"document_type"`
		PageNumbers    []int   `json:"page_numbers"`
		Text           string  `json:"text"`
		Score          float64 `json:"score"`
	}

	out := make([]jsonResult, len(results))
	for i := range results {
		c := &results[i].Chunk
		out[i] = jsonResult{
			ChunkID:        c.ID,
			DocumentID:     c.DocumentID,
			ApplicationRef: c.ApplicationRef,
			SourceFilename: c.SourceFilename,
			DocumentType:   c.DocumentType,
			PageNumbers:    c.PageNumbers,
			Text:           c.Text,
			Score:          results[i].Score,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i].Chunk
		cmd.Printf("  [%d] %s p.%s (%.3f)\n", i+1, c.SourceFilename, c.PageLabel(), results[i].Score)
		cmd.Printf("      %s · %s · %s\n", c.ApplicationRef, c.DocumentType, c.DocumentID)
		cmd.Printf("      %s\n", snippet(c.Text, 200))
		cmd.Println()
	}

	return nil
}

// snippet collapses whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
