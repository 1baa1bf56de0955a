package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kathalabs/katha/internal/config"
	"github.com/kathalabs/katha/internal/document"
	"github.com/kathalabs/katha/internal/embedding"
	"github.com/kathalabs/katha/internal/extractor"
	"github.com/kathalabs/katha/internal/index"
	"github.com/kathalabs/katha/internal/indexer"
	"github.com/kathalabs/katha/internal/llm"
	"github.com/kathalabs/katha/internal/storage"
)

var (
	indexFile      string
	indexForce     bool
	indexChunkSize int
	indexBackend   string
	noProgress     bool
)

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexFile, "file", "", "Source document to index (.pdf, .txt, .md)")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-index even if the source is already indexed")
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk-size", 0, "Target characters per chunk (default 4000)")
	indexCmd.Flags().StringVar(&indexBackend, "provider", embedding.BackendOpenAI, "Embedding backend (openai, cohere, ollama)")
	indexCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	indexCmd.MarkFlagRequired("file")
}

// IndexResponse is the response for the index command.
type IndexResponse struct {
	Status string `json:"status"`
	*indexer.Result
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a source document into retrievable episodes",
	Long: `Index a source document into retrievable episodes.

The document is chunked along paragraph boundaries, each chunk is sent to
the structuring model for episode extraction, duplicate episode ids are
merged (later chunks win), and the surviving episodes are embedded and
persisted under data/. Sources already indexed are skipped unless --force
is given.

Requires OPENAI_API_KEY (and COHERE_API_KEY with --provider cohere).`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectDir := mustProjectDir()
	mustAPIKey()

	provider, err := embedding.ForName(indexBackend)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	// The local backend fails fast before any paid extraction calls.
	if op, ok := provider.(*embedding.OllamaProvider); ok {
		if err := op.IsAvailable(ctx); err != nil {
			exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
		}
		hasModel, err := op.HasModel(ctx)
		if err != nil {
			exitWithError(ExitError, "checking model availability: %v", err)
		}
		if !hasModel {
			exitWithError(ExitModelNotFound, "embedding model '%s' not found\n\nRun 'ollama pull %s' to download it.", op.ModelName(), op.ModelName())
		}
	}

	store := index.NewStore(projectDir)

	if err := os.MkdirAll(config.CachePath(projectDir), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(projectDir))
	if err != nil {
		exitWithError(ExitError, "opening metadata cache: %v", err)
	}
	defer db.Close()

	ix := indexer.New(extractor.New(llm.NewClient()), provider, store, db)

	if humanOutput && !noProgress {
		fmt.Fprintf(os.Stderr, "Indexing %s...\n", indexFile)
		ix.SetProgressReporter(indexer.ProgressFunc(printProgress))
	}

	result, err := ix.Index(ctx, indexer.Options{
		FilePath:  indexFile,
		ChunkSize: indexChunkSize,
		Force:     indexForce,
	})
	if err != nil {
		switch {
		case errors.Is(err, indexer.ErrSourceNotFound):
			exitWithError(ExitError, "%v", err)
		case errors.Is(err, document.ErrUnsupportedFormat):
			exitWithError(ExitDataError, "%v", err)
		case errors.Is(err, indexer.ErrNoEpisodes):
			exitWithError(ExitDataError, "no episodes extracted from %s", indexFile)
		default:
			exitWithError(ExitError, "indexing: %v", err)
		}
	}

	if humanOutput && !noProgress {
		fmt.Fprintf(os.Stderr, "\r%s\r", "                                                  ")
	}

	status := "indexed"
	if result.AlreadyIndexed {
		status = "already_indexed"
	}

	if humanOutput {
		if result.AlreadyIndexed {
			outputHuman("Source '%s' is already indexed (use --force to re-index)\n", result.Key)
			return nil
		}
		outputHuman("Indexed '%s':\n", result.Key)
		outputHuman("  Chunks processed: %d\n", result.ChunksProcessed)
		outputHuman("  Episodes extracted: %d (%d after dedup)\n", result.RawEpisodes, result.EpisodesIndexed)
		outputHuman("  Episodes embedded: %d\n", result.EpisodesEmbedded)
		if result.EmbeddingsReused > 0 {
			outputHuman("  Embeddings reused: %d\n", result.EmbeddingsReused)
		}
		outputHuman("  Model: %s\n", provider.ModelName())
	} else {
		outputJSON(IndexResponse{Status: status, Result: result})
	}

	return nil
}
