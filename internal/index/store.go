// Package index persists episode metadata, embedding vectors, and the source
// registry for indexed source documents.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kathalabs/katha/internal/config"
	"github.com/kathalabs/katha/internal/episode"
)

// Meta is the _meta block of an episode metadata artifact.
type Meta struct {
	SourceFile        string `yaml:"source_file"`
	SourceName        string `yaml:"source_name"`
	GeneratedAt       string `yaml:"generated_at"`
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingModel    string `yaml:"embedding_model"`
	ChunkSize         int    `yaml:"chunk_size"`
	EpisodeCount      int    `yaml:"episode_count"`
}

// EmbeddingRecord pairs an episode id with its embedding vector.
type EmbeddingRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
}

// RegistryEntry tracks an indexed source and its retrieval eligibility.
type RegistryEntry struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	Format  string `yaml:"format"`
}

// indexArtifact is the on-disk shape of data/episode-index/<key>.yml.
type indexArtifact struct {
	Meta     Meta              `yaml:"_meta"`
	Episodes []episode.Episode `yaml:"episodes"`
}

// embeddingsArtifact is the on-disk shape of data/embeddings/<key>.json.
type embeddingsArtifact struct {
	Key         string            `json:"key"`
	Model       string            `json:"model"`
	GeneratedAt string            `json:"generated_at"`
	Episodes    []EmbeddingRecord `json:"episodes"`
}

// Store owns the persisted index artifacts under a project directory. The
// indexing path is the only writer; retrieval only reads.
type Store struct {
	projectDir string
}

// NewStore creates a store rooted at the given project directory.
func NewStore(projectDir string) *Store {
	return &Store{projectDir: projectDir}
}

// WriteIndex persists the episode metadata and embedding artifacts for a
// source key and upserts its registry entry with enabled=true. Any prior
// index for the same key is overwritten.
func (s *Store) WriteIndex(key string, episodes []episode.Episode, records []EmbeddingRecord, meta Meta) error {
	meta.EpisodeCount = len(episodes)
	if meta.GeneratedAt == "" {
		meta.GeneratedAt = time.Now().Format(time.RFC3339)
	}

	indexOut, err := yaml.Marshal(indexArtifact{Meta: meta, Episodes: episodes})
	if err != nil {
		return fmt.Errorf("encoding episode index: %w", err)
	}
	if err := writeFileAtomic(config.IndexPath(s.projectDir, key), indexOut); err != nil {
		return fmt.Errorf("writing episode index: %w", err)
	}

	embOut, err := json.MarshalIndent(embeddingsArtifact{
		Key:         key,
		Model:       meta.EmbeddingModel,
		GeneratedAt: meta.GeneratedAt,
		Episodes:    records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding embeddings: %w", err)
	}
	if err := writeFileAtomic(config.EmbeddingsPath(s.projectDir, key), embOut); err != nil {
		return fmt.Errorf("writing embeddings: %w", err)
	}

	registry, err := s.LoadRegistry()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}
	registry[key] = RegistryEntry{
		Enabled: true,
		Name:    meta.SourceName,
		Format:  meta.sourceFormat(),
	}
	if err := s.saveRegistry(registry); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}

	return nil
}

func (m Meta) sourceFormat() string {
	ext := filepath.Ext(m.SourceFile)
	if len(ext) > 1 {
		return ext[1:]
	}
	return ""
}

// IsIndexed reports whether a source key has been indexed: true only if the
// registry entry and the episode metadata artifact both exist.
func (s *Store) IsIndexed(key string) bool {
	registry, err := s.LoadRegistry()
	if err != nil {
		return false
	}
	if _, ok := registry[key]; !ok {
		return false
	}
	_, err = os.Stat(config.IndexPath(s.projectDir, key))
	return err == nil
}

// LoadEpisodes reads the episode metadata for a source key. An unindexed
// key yields an empty list, not an error.
func (s *Store) LoadEpisodes(key string) ([]episode.Episode, error) {
	data, err := os.ReadFile(config.IndexPath(s.projectDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading episode index: %w", err)
	}

	var artifact indexArtifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing episode index: %w", err)
	}
	return artifact.Episodes, nil
}

// LoadMeta reads the _meta block for a source key, or nil if unindexed.
func (s *Store) LoadMeta(key string) (*Meta, error) {
	data, err := os.ReadFile(config.IndexPath(s.projectDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading episode index: %w", err)
	}

	var artifact indexArtifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing episode index: %w", err)
	}
	return &artifact.Meta, nil
}

// LoadEmbeddings reads the embedding records for a source key. An unindexed
// key yields an empty list, not an error.
func (s *Store) LoadEmbeddings(key string) ([]EmbeddingRecord, error) {
	data, err := os.ReadFile(config.EmbeddingsPath(s.projectDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading embeddings: %w", err)
	}

	var artifact embeddingsArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing embeddings: %w", err)
	}
	return artifact.Episodes, nil
}

// EmbeddingModel returns the embedding model id persisted in the embeddings
// artifact for a source key, or "" if unindexed.
func (s *Store) EmbeddingModel(key string) (string, error) {
	data, err := os.ReadFile(config.EmbeddingsPath(s.projectDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading embeddings: %w", err)
	}

	var artifact embeddingsArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return "", fmt.Errorf("parsing embeddings: %w", err)
	}
	return artifact.Model, nil
}

// LoadRegistry reads the source registry. A missing registry file yields an
// empty registry.
func (s *Store) LoadRegistry() (map[string]RegistryEntry, error) {
	data, err := os.ReadFile(config.RegistryPath(s.projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]RegistryEntry{}, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	registry := map[string]RegistryEntry{}
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	return registry, nil
}

// EnabledSources returns the keys of registry entries eligible for
// retrieval, sorted for deterministic iteration.
func (s *Store) EnabledSources() ([]string, error) {
	registry, err := s.LoadRegistry()
	if err != nil {
		return nil, err
	}

	var keys []string
	for key, entry := range registry {
		if entry.Enabled {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) saveRegistry(registry map[string]RegistryEntry) error {
	data, err := yaml.Marshal(registry)
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	return writeFileAtomic(config.RegistryPath(s.projectDir), data)
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, creating parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
