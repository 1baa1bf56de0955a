// Package indexer orchestrates the source indexing pipeline: text
// extraction, chunking, episode extraction, deduplication, embedding, and
// artifact persistence.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kathalabs/katha/internal/chunker"
	"github.com/kathalabs/katha/internal/document"
	"github.com/kathalabs/katha/internal/embedding"
	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/index"
	"github.com/kathalabs/katha/internal/storage"
)

// Errors returned by the indexer.
var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrNoEpisodes     = errors.New("no episodes extracted from source")
)

// EpisodeExtractor extracts candidate episodes from one chunk.
type EpisodeExtractor interface {
	Extract(ctx context.Context, chunk, sourceKey string, chunkIndex, totalChunks int) []episode.Episode
}

// ProgressReporter receives progress updates during an indexing run.
type ProgressReporter interface {
	// OnProgress is called after each chunk with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Options configures a single indexing run.
type Options struct {
	FilePath  string // path to the source document
	ChunkSize int    // target characters per chunk; 0 means default
	Force     bool   // re-index even if already indexed
}

// Result reports the outcome of an indexing run. Indexing is counted, not
// pass/fail: a run succeeds as long as at least one episode was produced,
// even if some chunks or embeddings contributed nothing.
type Result struct {
	Key              string `json:"key"`
	AlreadyIndexed   bool   `json:"already_indexed,omitempty"`
	ChunksProcessed  int    `json:"chunks_processed"`
	RawEpisodes      int    `json:"raw_episodes"`
	EpisodesIndexed  int    `json:"episodes_indexed"`
	EpisodesEmbedded int    `json:"episodes_embedded"`
	EmbeddingsReused int    `json:"embeddings_reused,omitempty"`
}

// Indexer runs the indexing pipeline for one source document at a time.
// Concurrent runs on distinct source keys are safe (disjoint artifacts);
// runs on the same key must be serialized by the caller.
type Indexer struct {
	extractor EpisodeExtractor
	provider  embedding.Provider
	store     *index.Store
	db        *storage.DB // optional embedding-metadata cache
	progress  ProgressReporter
}

// New creates an indexer. db may be nil to skip the metadata cache.
func New(ex EpisodeExtractor, provider embedding.Provider, store *index.Store, db *storage.DB) *Indexer {
	return &Indexer{extractor: ex, provider: provider, store: store, db: db}
}

// SetProgressReporter sets the progress reporter for chunk extraction.
func (ix *Indexer) SetProgressReporter(reporter ProgressReporter) {
	ix.progress = reporter
}

// Index runs the full pipeline for one source document.
//
// Chunks are extracted sequentially in order; the dedupe pass re-imposes
// chunk order anyway, so the last-write-wins merge stays deterministic.
// Chunk-level failures are skipped; zero episodes overall is a hard failure.
func (ix *Indexer) Index(ctx context.Context, opts Options) (*Result, error) {
	if _, err := os.Stat(opts.FilePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, opts.FilePath)
	}

	key := document.Key(opts.FilePath)
	result := &Result{Key: key}

	if ix.store.IsIndexed(key) && !opts.Force {
		result.AlreadyIndexed = true
		return result, nil
	}

	text, err := document.ExtractText(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	chunks := chunker.Chunk(text, chunkSize)

	var candidates []episode.Episode
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candidates = append(candidates, ix.extractor.Extract(ctx, chunk, key, i, len(chunks))...)
		result.ChunksProcessed++

		if ix.progress != nil {
			ix.progress.OnProgress(i+1, len(chunks))
		}
	}
	result.RawEpisodes = len(candidates)

	episodes := episode.Dedupe(candidates)
	result.EpisodesIndexed = len(episodes)
	if len(episodes) == 0 {
		return nil, ErrNoEpisodes
	}

	reuse := ix.reusableVectors(key, episodes)
	records, reused := ix.embedEpisodes(ctx, episodes, reuse)
	result.EpisodesEmbedded = len(records)
	result.EmbeddingsReused = reused

	meta := index.Meta{
		SourceFile:        filepath.Base(opts.FilePath),
		SourceName:        document.DisplayName(key),
		EmbeddingProvider: ix.provider.Name(),
		EmbeddingModel:    ix.provider.ModelName(),
		ChunkSize:         chunkSize,
	}
	if err := ix.store.WriteIndex(key, episodes, records, meta); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	if ix.db != nil {
		if err := ix.saveMetadata(key, episodes, records); err != nil {
			return nil, fmt.Errorf("saving embedding metadata: %w", err)
		}
	}

	return result, nil
}

// reusableVectors returns the persisted vectors of episodes whose embedded
// text and model are unchanged since the last run, keyed by episode id. A
// forced re-index skips provider calls for those episodes. Without the
// metadata cache there is nothing to compare against.
func (ix *Indexer) reusableVectors(key string, episodes []episode.Episode) map[string][]float32 {
	if ix.db == nil {
		return nil
	}
	prior, err := ix.store.LoadEmbeddings(key)
	if err != nil || len(prior) == 0 {
		return nil
	}
	vectors := make(map[string][]float32, len(prior))
	for _, rec := range prior {
		vectors[rec.ID] = rec.Embedding
	}

	model := ix.provider.ModelName()
	reuse := make(map[string][]float32)
	for _, ep := range episodes {
		vec, ok := vectors[ep.ID]
		if !ok {
			continue
		}
		meta, err := ix.db.GetEmbeddingMetadata(key, ep.ID)
		if err != nil || meta == nil {
			continue
		}
		if meta.ModelName != model || meta.SummaryHash != storage.HashSummary(ep.EmbeddingText()) {
			continue
		}
		reuse[ep.ID] = vec
	}
	return reuse
}

// embedEpisodes embeds each episode's summary text as a search document,
// taking vectors from reuse where the summary is unchanged. Episodes with no
// embeddable text or a failing provider call are skipped with a warning and
// excluded from retrieval; the batch continues.
func (ix *Indexer) embedEpisodes(ctx context.Context, episodes []episode.Episode, reuse map[string][]float32) ([]index.EmbeddingRecord, int) {
	var records []index.EmbeddingRecord
	reused := 0
	for _, ep := range episodes {
		text := ep.EmbeddingText()
		if text == "" {
			fmt.Fprintf(os.Stderr, "warning: episode %q has no summary, skipping embedding\n", ep.ID)
			continue
		}

		if vec, ok := reuse[ep.ID]; ok {
			records = append(records, index.EmbeddingRecord{ID: ep.ID, Embedding: vec})
			reused++
			continue
		}

		emb, err := ix.provider.Embed(ctx, text, embedding.SearchDocument)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to embed episode %q: %v\n", ep.ID, err)
			continue
		}

		records = append(records, index.EmbeddingRecord{ID: ep.ID, Embedding: emb.Vector})
	}
	return records, reused
}

func (ix *Indexer) saveMetadata(key string, episodes []episode.Episode, records []index.EmbeddingRecord) error {
	if err := ix.db.ClearSource(key); err != nil {
		return err
	}

	embedded := make(map[string]bool, len(records))
	for _, r := range records {
		embedded[r.ID] = true
	}

	now := time.Now().Unix()
	for _, ep := range episodes {
		if !embedded[ep.ID] {
			continue
		}
		meta := storage.EmbeddingMetadata{
			SourceKey:   key,
			EpisodeID:   ep.ID,
			ModelName:   ix.provider.ModelName(),
			IndexedAt:   now,
			SummaryHash: storage.HashSummary(ep.EmbeddingText()),
		}
		if err := ix.db.SaveEmbeddingMetadata(meta); err != nil {
			return err
		}
	}
	return nil
}
