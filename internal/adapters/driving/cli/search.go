package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driving"
)

var (
	searchTopK int
	searchType string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed content",
	Long: `Ranks the tenant's indexed chunks by semantic similarity to the query
and prints the most relevant ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict results to one source type")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	query := args[0]
	ctx := context.Background()
	opts := driving.SearchOptions{
		TopK:       searchTopK,
		SourceType: domain.SourceType(searchType),
	}

	results, err := knowledgeService.Search(ctx, flagTenant, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.DocumentChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.DocumentChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i]
		title := c.Title
		if title == "" {
			title = c.ID
		}

		cmd.Printf("  [%d] %s\n", i+1, title)
		if c.Metadata.URL != "" {
			cmd.Printf("      %s\n", c.Metadata.URL)
		}
		if c.Metadata.Section != "" {
			cmd.Printf("      Section: %s\n", c.Metadata.Section)
		}
		if len(c.Tags) > 0 {
			cmd.Printf("      Tags: %s\n", strings.Join(c.Tags, ", "))
		}
		cmd.Printf("      %s\n", snippet(c.Content, 160))
		cmd.Println()
	}
	return nil
}

// snippet returns the first maxLen runes of content on a single line.
func snippet(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
