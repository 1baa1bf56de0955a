package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/index"
	"github.com/kathalabs/katha/internal/retriever"
)

var (
	searchSources []string
	searchTopK    int
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "Source keys to search (default: all enabled sources)")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", retriever.DefaultTopK, "Maximum number of results")
}

// SearchResult represents one episode in search results.
type SearchResult struct {
	ID       string       `json:"id"`
	Type     episode.Type `json:"type"`
	Source   string       `json:"source"`
	Score    float32      `json:"score"`
	Keywords []string     `json:"keywords,omitempty"`
	Summary  string       `json:"summary"`
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed episodes by semantic similarity",
	Long: `Search indexed episodes by semantic similarity.

The query is embedded with the same model the sources were indexed with
and episodes are ranked by cosine similarity. All candidate sources must
share one embedding model; re-index with --force to migrate a source.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.TrimSpace(args[0])
	if query == "" {
		exitWithError(ExitError, "search query cannot be empty")
	}

	projectDir := mustProjectDir()
	store := index.NewStore(projectDir)

	r := retriever.New(store, nil)
	hits, err := r.Search(ctx, query, searchSources, searchTopK)
	if err != nil {
		if errors.Is(err, retriever.ErrModelMismatch) {
			exitWithError(ExitModelMismatch, "%v\n\nRe-index sources with one embedding provider before searching across them.", err)
		}
		exitWithError(ExitError, "searching: %v", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			ID:       h.Episode.ID,
			Type:     h.Episode.Type,
			Source:   h.Source,
			Score:    h.Score,
			Keywords: h.Episode.Keywords,
			Summary:  h.Episode.SummaryEn,
		})
	}

	if humanOutput {
		outputHuman("Search: %q\n", query)
		outputHuman("Found %d episode(s)\n\n", len(results))
		for i, r := range results {
			outputHuman("%d. [%.2f] %s (%s)\n", i+1, r.Score, r.ID, r.Source)
			outputHuman("   %s\n\n", truncateString(r.Summary, SummaryTextMaxLen))
		}
	} else {
		outputJSON(SearchResponse{Query: query, Results: results, Total: len(results)})
	}

	return nil
}
