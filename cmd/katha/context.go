package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kathalabs/katha/internal/config"
	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/index"
	"github.com/kathalabs/katha/internal/llm"
	"github.com/kathalabs/katha/internal/puranic"
	"github.com/kathalabs/katha/internal/retriever"
	"github.com/kathalabs/katha/internal/verse"
)

var (
	ctxCollection string
	ctxVerse      string
	ctxAll        bool
	ctxRegenerate bool
)

func init() {
	rootCmd.AddCommand(contextCmd)

	contextCmd.Flags().StringVar(&ctxCollection, "collection", "", "Collection key (e.g. hanuman-chalisa)")
	contextCmd.Flags().StringVar(&ctxVerse, "verse", "", "Verse ID to process (e.g. chaupai-15)")
	contextCmd.Flags().BoolVar(&ctxAll, "all", false, "Process all verses in the collection")
	contextCmd.Flags().BoolVar(&ctxRegenerate, "regenerate", false, "Overwrite existing context entries")
	contextCmd.MarkFlagRequired("collection")
}

// ContextSummary is the response for the context command.
type ContextSummary struct {
	Collection  string `json:"collection"`
	Verses      int    `json:"verses"`
	Added       int    `json:"added"`
	Regenerated int    `json:"regenerated"`
	Skipped     int    `json:"skipped"`
	Empty       int    `json:"empty"`
	Errors      int    `json:"errors"`
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Generate Puranic context entries for verse files",
	Long: `Generate Puranic context entries for verse files.

Each verse is embedded and searched against the indexed sources; the
retrieved episodes ground the generated entries, which are written into
the verse file's frontmatter under puranic_context. Verses that already
have context are skipped unless --regenerate is given. With no indexed
sources the model falls back to free recall.

Requires OPENAI_API_KEY.`,
	RunE: runContext,
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if (ctxVerse == "" && !ctxAll) || (ctxVerse != "" && ctxAll) {
		exitWithError(ExitError, "exactly one of --verse or --all is required")
	}
	mustAPIKey()

	projectDir := mustProjectDir()
	collectionDir := config.CollectionPath(projectDir, ctxCollection)
	if _, err := os.Stat(collectionDir); err != nil {
		exitWithError(ExitConfigError, "collection directory not found: %s", collectionDir)
	}

	var verseFiles []string
	if ctxAll {
		files, err := filepath.Glob(filepath.Join(collectionDir, "*.md"))
		if err != nil || len(files) == 0 {
			exitWithError(ExitError, "no verse files found in %s", collectionDir)
		}
		sort.Strings(files)
		verseFiles = files
	} else {
		path := config.VersePath(projectDir, ctxCollection, ctxVerse)
		if _, err := os.Stat(path); err != nil {
			exitWithError(ExitError, "verse file not found: %s", path)
		}
		verseFiles = []string{path}
	}

	store := index.NewStore(projectDir)
	r := retriever.New(store, nil)
	gen := puranic.NewGenerator(llm.NewClient())

	summary := ContextSummary{Collection: ctxCollection, Verses: len(verseFiles)}
	for _, path := range verseFiles {
		outcome, err := processVerse(ctx, path, r, gen)
		if err != nil {
			if errors.Is(err, retriever.ErrModelMismatch) {
				exitWithError(ExitModelMismatch, "%v", err)
			}
			exitWithError(ExitError, "%v", err)
		}

		verseID := verseStem(path)
		switch outcome {
		case "added":
			summary.Added++
			if humanOutput {
				outputHuman("  added      %s\n", verseID)
			}
		case "regenerated":
			summary.Regenerated++
			if humanOutput {
				outputHuman("  updated    %s\n", verseID)
			}
		case "skipped":
			summary.Skipped++
			if humanOutput {
				outputHuman("  skipped    %s (already has context)\n", verseID)
			}
		case "empty":
			summary.Empty++
			if humanOutput {
				outputHuman("  no content %s\n", verseID)
			}
		case "error":
			summary.Errors++
			if humanOutput {
				outputHuman("  error      %s\n", verseID)
			}
		}
	}

	if humanOutput {
		outputHuman("\nSummary: %d added, %d updated, %d skipped, %d empty, %d errors\n",
			summary.Added, summary.Regenerated, summary.Skipped, summary.Empty, summary.Errors)
	} else {
		outputJSON(summary)
	}

	if summary.Errors == len(verseFiles) {
		os.Exit(ExitError)
	}
	return nil
}

// processVerse handles one verse file end to end. Per-verse failures come
// back as the "error" outcome so a batch run continues; only global
// configuration problems (like a model mismatch across sources) are errors.
func processVerse(ctx context.Context, path string, r *retriever.Retriever, gen *puranic.Generator) (string, error) {
	verseID := verseStem(path)

	f, err := verse.Parse(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", verseID, err)
		return "error", nil
	}

	hadContext := f.HasContext()
	if hadContext && !ctxRegenerate {
		return "skipped", nil
	}

	query := retriever.BuildQueryText(f.SearchFields(), verseID)
	hits, err := r.Search(ctx, query, nil, retriever.DefaultTopK)
	if err != nil {
		return "", err
	}

	grounding := make([]episode.Episode, 0, len(hits))
	for _, h := range hits {
		grounding = append(grounding, h.Episode)
	}

	entries, err := gen.Generate(ctx, f.ContextVerse(verseID), grounding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return "error", nil
	}
	if len(entries) == 0 {
		return "empty", nil
	}

	if err := f.SetContext(entries); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", verseID, err)
		return "error", nil
	}
	if err := f.Update(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", verseID, err)
		return "error", nil
	}

	if hadContext {
		return "regenerated", nil
	}
	return "added", nil
}

// verseStem derives the verse ID from its file path.
func verseStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
