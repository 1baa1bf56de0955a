// Package storage provides the SQLite-backed embedding-metadata cache.
//
// The cache records which episode summaries have been embedded, with which
// model, and a hash of the embedded text, so staleness can be checked
// without re-reading the index artifacts.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS embedding_metadata (
			source_key TEXT NOT NULL,
			episode_id TEXT NOT NULL,
			model_name TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			summary_hash TEXT NOT NULL,
			PRIMARY KEY (source_key, episode_id)
		);

		CREATE INDEX IF NOT EXISTS idx_embedding_metadata_source
			ON embedding_metadata(source_key);
	`
	_, err := db.Exec(schema)
	return err
}

// EmbeddingMetadata represents embedding metadata stored in the database.
type EmbeddingMetadata struct {
	SourceKey   string
	EpisodeID   string
	ModelName   string
	IndexedAt   int64 // Unix timestamp
	SummaryHash string
}

// SaveEmbeddingMetadata saves or updates embedding metadata for an episode.
func (d *DB) SaveEmbeddingMetadata(meta EmbeddingMetadata) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO embedding_metadata (source_key, episode_id, model_name, indexed_at, summary_hash)
		VALUES (?, ?, ?, ?, ?)
	`, meta.SourceKey, meta.EpisodeID, meta.ModelName, meta.IndexedAt, meta.SummaryHash)
	return err
}

// GetEmbeddingMetadata retrieves embedding metadata for one episode, or nil
// if none is recorded.
func (d *DB) GetEmbeddingMetadata(sourceKey, episodeID string) (*EmbeddingMetadata, error) {
	var meta EmbeddingMetadata
	err := d.db.QueryRow(`
		SELECT source_key, episode_id, model_name, indexed_at, summary_hash
		FROM embedding_metadata
		WHERE source_key = ? AND episode_id = ?
	`, sourceKey, episodeID).Scan(&meta.SourceKey, &meta.EpisodeID, &meta.ModelName, &meta.IndexedAt, &meta.SummaryHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// ClearSource removes all embedding metadata for a source key. Called before
// a re-index so stale episode ids disappear with the old artifacts.
func (d *DB) ClearSource(sourceKey string) error {
	_, err := d.db.Exec("DELETE FROM embedding_metadata WHERE source_key = ?", sourceKey)
	return err
}

// CountBySource returns the number of embedded episodes recorded for a source.
func (d *DB) CountBySource(sourceKey string) (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata WHERE source_key = ?", sourceKey).Scan(&count)
	return count, err
}

// HashSummary computes the SHA256 hash of an episode's embedded text.
func HashSummary(text string) string {
	h := sha256.New()
	io.WriteString(h, text)
	return fmt.Sprintf("%x", h.Sum(nil))
}
