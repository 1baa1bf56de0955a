// Package main provides the katha CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kathalabs/katha/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// projectDirFlag overrides project directory resolution
var projectDirFlag string

func main() {
	godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "katha",
	Short: "Index scripture sources and generate grounded verse context",
	Long: `katha indexes long-form scripture texts into retrievable episodes and
uses them to generate Puranic context entries for verse files.

Indexing chunks a source document, extracts structured episodes with an
LLM, embeds them, and persists the index under data/. Context generation
retrieves the episodes most relevant to a verse and grounds the generated
entries in them. All commands output JSON by default for easy integration
with agents and other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&projectDirFlag, "project-dir", "", "Project directory (default: KATHA_ROOT or current directory)")
	rootCmd.Version = Version
}

// mustProjectDir resolves the project directory, or exits with an error.
func mustProjectDir() string {
	dir, err := config.ProjectDir(projectDirFlag)
	if err != nil {
		exitWithError(ExitError, "resolving project directory: %v", err)
	}
	return dir
}

// mustAPIKey exits unless the OpenAI API key is configured.
func mustAPIKey() {
	if os.Getenv("OPENAI_API_KEY") == "" {
		exitWithError(ExitConfigError, "OPENAI_API_KEY environment variable not set")
	}
}
