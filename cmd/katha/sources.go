package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/kathalabs/katha/internal/index"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	Enabled  bool   `json:"enabled"`
	Indexed  bool   `json:"indexed"`
	Episodes int    `json:"episodes"`
	Model    string `json:"model,omitempty"`
}

// SourcesResponse is the response for the sources command.
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
	Total   int          `json:"total"`
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered source documents",
	Long: `List registered source documents with their indexed status, episode
counts, and embedding model.`,
	RunE: runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	projectDir := mustProjectDir()
	store := index.NewStore(projectDir)

	registry, err := store.LoadRegistry()
	if err != nil {
		exitWithError(ExitError, "loading registry: %v", err)
	}

	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sources := make([]SourceInfo, 0, len(keys))
	for _, key := range keys {
		entry := registry[key]
		info := SourceInfo{
			Key:     key,
			Name:    entry.Name,
			Format:  entry.Format,
			Enabled: entry.Enabled,
			Indexed: store.IsIndexed(key),
		}

		if meta, err := store.LoadMeta(key); err == nil && meta != nil {
			info.Episodes = meta.EpisodeCount
			info.Model = meta.EmbeddingModel
		}
		sources = append(sources, info)
	}

	if humanOutput {
		if len(sources) == 0 {
			outputHuman("No sources registered. Run 'katha index --file <path>' to index one.\n")
			return nil
		}
		for _, s := range sources {
			status := "indexed"
			if !s.Indexed {
				status = "not indexed"
			} else if !s.Enabled {
				status = "disabled"
			}
			outputHuman("%-24s %-12s %3d episodes  %s\n", s.Key, status, s.Episodes, s.Model)
		}
	} else {
		outputJSON(SourcesResponse{Sources: sources, Total: len(sources)})
	}

	return nil
}
