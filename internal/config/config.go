// Package config defines the on-disk layout of a katha project.
package config

import (
	"os"
	"path/filepath"
)

// Project layout relative to the project directory.
const (
	DataDir      = "data"
	IndexDir     = "episode-index" // episode metadata artifacts (data/episode-index)
	EmbedDir     = "embeddings"    // embedding artifacts (data/embeddings)
	CacheDir     = "cache"         // ephemeral derived data (data/cache)
	RegistryFile = "sources.yml"   // source registry (data/sources.yml)
	DBFile       = "index.db"      // embedding-metadata cache (data/cache/index.db)
	VersesDir    = "_verses"       // verse collections (_verses/<collection>/*.md)
)

// IndexPath returns the episode metadata artifact for a source key.
func IndexPath(projectDir, key string) string {
	return filepath.Join(projectDir, DataDir, IndexDir, key+".yml")
}

// EmbeddingsPath returns the embeddings artifact for a source key.
func EmbeddingsPath(projectDir, key string) string {
	return filepath.Join(projectDir, DataDir, EmbedDir, key+".json")
}

// RegistryPath returns the source registry file.
func RegistryPath(projectDir string) string {
	return filepath.Join(projectDir, DataDir, RegistryFile)
}

// CachePath returns the cache directory.
func CachePath(projectDir string) string {
	return filepath.Join(projectDir, DataDir, CacheDir)
}

// DBPath returns the embedding-metadata database file.
func DBPath(projectDir string) string {
	return filepath.Join(projectDir, DataDir, CacheDir, DBFile)
}

// CollectionPath returns the verse directory for a collection.
func CollectionPath(projectDir, collection string) string {
	return filepath.Join(projectDir, VersesDir, collection)
}

// VersePath returns the markdown file for a verse in a collection.
func VersePath(projectDir, collection, verseID string) string {
	return filepath.Join(projectDir, VersesDir, collection, verseID+".md")
}

// ProjectDir resolves the project directory: an explicit flag value wins,
// then the KATHA_ROOT environment variable, then the working directory.
func ProjectDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if root := os.Getenv("KATHA_ROOT"); root != "" {
		return root, nil
	}
	return os.Getwd()
}
