// Package retriever finds the indexed episodes most similar to a query by
// cosine similarity over persisted embeddings.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kathalabs/katha/internal/embedding"
	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/index"
)

// DefaultTopK is the number of episodes returned when the caller does not
// specify a limit.
const DefaultTopK = 8

// queryFieldLimit caps how many characters each prose field contributes to
// the query text.
const queryFieldLimit = 300

// ErrModelMismatch is returned when the candidate sources were embedded with
// different models. Scores across models are not comparable, so retrieval
// refuses to mix them rather than silently returning garbage rankings.
var ErrModelMismatch = errors.New("sources were indexed with different embedding models")

// ScoredEpisode is one retrieval hit.
type ScoredEpisode struct {
	Episode episode.Episode `json:"episode"`
	Source  string          `json:"source"`
	Score   float32         `json:"score"`
}

// ProviderFunc resolves an embedding provider for a persisted model id.
type ProviderFunc func(model string) (embedding.Provider, error)

// Retriever searches indexed sources. It only reads artifacts; indexing is
// the sole writer, so concurrent searches are safe.
type Retriever struct {
	store       *index.Store
	providerFor ProviderFunc
}

// New creates a retriever. providerFor may be nil, in which case providers
// are resolved from the persisted model id.
func New(store *index.Store, providerFor ProviderFunc) *Retriever {
	if providerFor == nil {
		providerFor = embedding.ForModel
	}
	return &Retriever{store: store, providerFor: providerFor}
}

// Search returns the topK episodes most similar to queryText across the
// given sources. An empty sources slice means all enabled registry sources;
// topK <= 0 means DefaultTopK.
//
// All candidate sources must have been embedded with the same model
// (ErrModelMismatch otherwise). A failure to embed the query yields an empty
// result and a nil error so callers can fall back to ungrounded generation.
// Episodes without a persisted embedding are excluded.
func (r *Retriever) Search(ctx context.Context, queryText string, sources []string, topK int) ([]ScoredEpisode, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if len(sources) == 0 {
		enabled, err := r.store.EnabledSources()
		if err != nil {
			return nil, fmt.Errorf("loading source registry: %w", err)
		}
		sources = enabled
	}

	model, indexed, err := r.resolveModel(sources)
	if err != nil {
		return nil, err
	}
	if model == "" {
		return nil, nil
	}

	provider, err := r.providerFor(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: no provider for model %q: %v\n", model, err)
		return nil, nil
	}

	query, err := provider.Embed(ctx, queryText, embedding.SearchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to embed query: %v\n", err)
		return nil, nil
	}

	var results []ScoredEpisode
	for _, key := range indexed {
		hits, err := r.scoreSource(key, query)
		if err != nil {
			return nil, err
		}
		results = append(results, hits...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// resolveModel returns the shared embedding model of the indexed candidates
// and the subset of sources that are actually indexed.
func (r *Retriever) resolveModel(sources []string) (string, []string, error) {
	var model string
	var indexed []string
	for _, key := range sources {
		m, err := r.store.EmbeddingModel(key)
		if err != nil {
			return "", nil, err
		}
		if m == "" {
			continue
		}
		if model == "" {
			model = m
		} else if m != model {
			return "", nil, fmt.Errorf("%w: %q vs %q", ErrModelMismatch, model, m)
		}
		indexed = append(indexed, key)
	}
	return model, indexed, nil
}

func (r *Retriever) scoreSource(key string, query embedding.Embedding) ([]ScoredEpisode, error) {
	episodes, err := r.store.LoadEpisodes(key)
	if err != nil {
		return nil, err
	}
	records, err := r.store.LoadEmbeddings(key)
	if err != nil {
		return nil, err
	}

	vectors := make(map[string][]float32, len(records))
	for _, rec := range records {
		vectors[rec.ID] = rec.Embedding
	}

	var hits []ScoredEpisode
	for _, ep := range episodes {
		vec, ok := vectors[ep.ID]
		if !ok {
			continue
		}
		// Vectors are unit-norm at embed time, so the dot product is the
		// cosine similarity.
		hits = append(hits, ScoredEpisode{
			Episode: ep,
			Source:  key,
			Score:   embedding.Dot(query.Vector, vec),
		})
	}
	return hits, nil
}

// BuildQueryText assembles retrieval query text from verse fields: the
// devanagari and transliteration in full, then each prose field truncated to
// keep the query focused. Falls back to the verse id when the fields carry
// no usable text.
func BuildQueryText(fields map[string]string, verseID string) string {
	var parts []string
	for _, k := range []string{"devanagari", "transliteration"} {
		if v := strings.TrimSpace(fields[k]); v != "" {
			parts = append(parts, v)
		}
	}
	for _, k := range []string{"translation", "interpretive_meaning", "literal_translation"} {
		if v := strings.TrimSpace(fields[k]); v != "" {
			parts = append(parts, truncate(v, queryFieldLimit))
		}
	}
	if len(parts) == 0 {
		return verseID
	}
	return strings.Join(parts, " ")
}

// truncate cuts s to at most limit bytes without splitting a rune. Devanagari
// runs three bytes per rune, so a blind byte cut would mangle the tail.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
