// Package extractor turns source-text chunks into candidate episodes via a
// schema-constrained structuring-model call.
package extractor

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/llm"
)

// systemPrompt is the fixed schema contract for episode extraction.
const systemPrompt = `You are an expert in Hindu scriptures and Puranic literature.
Given a passage from a source text, extract structured episodes as a YAML list.

Each episode must have these fields:
  id: unique-slug (kebab-case, globally unique across the source)
  type: story | character | concept | etymology | practice | event
  keywords:
    - keyword1
    - keyword2
  source:
    book: "Name of book/text"
    sarga: "Chapter/section reference if known, else empty string"
  summary_en: "2-4 sentence summary in English"
  summary_hi: "Same summary in Hindi Devanagari"

Rules:
- Only extract episodes with actual narrative/mythological content
- Skip boilerplate, table of contents, indices, and editorial notes
- Use globally unique IDs (e.g. rama-exile-episode, hanuman-birth-story)
- All Hindi text must be in Devanagari script
- Return ONLY valid YAML — no markdown fences, no explanation
- Return [] if the passage has no extractable episodes`

// extractionTemperature keeps the structuring model close to the source text.
const extractionTemperature = 0.2

// Completer is the completion surface the extractor needs from an LLM client.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Extractor extracts candidate episodes from text chunks.
type Extractor struct {
	llm Completer
}

// New creates an extractor backed by the given completion client.
func New(c Completer) *Extractor {
	return &Extractor{llm: c}
}

// Extract sends one chunk to the structuring model and parses the response
// into candidate episodes, each stamped with chunkIndex.
//
// This is a best-effort step: an API failure, a YAML parse failure, or a
// non-list response all yield zero episodes and a warning, never an error.
// One bad chunk must not abort an indexing run.
func (e *Extractor) Extract(ctx context.Context, chunk, sourceKey string, chunkIndex, totalChunks int) []episode.Episode {
	user := fmt.Sprintf(`Source: %s
Passage (chunk %d/%d):

%s

Extract episodes from this passage as a YAML list. Return [] if none.`, sourceKey, chunkIndex+1, totalChunks, chunk)

	raw, err := e.llm.Complete(ctx, systemPrompt, user, extractionTemperature)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: extraction failed for chunk %d/%d: %v\n", chunkIndex+1, totalChunks, err)
		return nil
	}

	eps, err := ParseEpisodes(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: chunk %d/%d: %v\n", chunkIndex+1, totalChunks, err)
		return nil
	}

	for i := range eps {
		eps[i].ChunkIndex = chunkIndex
	}
	return eps
}

// ParseEpisodes parses a model response into typed episodes. Fence markers
// are stripped first. An empty or null document parses as zero episodes; a
// non-list document or invalid YAML is an error. Episodes that fail
// validation (no id, type outside the schema) are discarded with a warning.
func ParseEpisodes(raw string) ([]episode.Episode, error) {
	raw = llm.StripFences(raw)
	if raw == "" {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parsing response YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("unexpected response format (not a list)")
	}

	var eps []episode.Episode
	if err := root.Decode(&eps); err != nil {
		return nil, fmt.Errorf("decoding episodes: %w", err)
	}

	var valid []episode.Episode
	for _, ep := range eps {
		if err := ep.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: discarding episode: %v\n", err)
			continue
		}
		valid = append(valid, ep)
	}
	return valid, nil
}
