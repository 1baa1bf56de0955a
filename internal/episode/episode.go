// Package episode defines the persistent units of extracted knowledge and
// the grounded context entries generated from them.
package episode

import (
	"fmt"
	"sort"
	"strings"
)

// Type classifies an extracted episode.
type Type string

// Episode types produced by the extraction model.
const (
	TypeStory     Type = "story"
	TypeCharacter Type = "character"
	TypeConcept   Type = "concept"
	TypeEtymology Type = "etymology"
	TypePractice  Type = "practice"
	TypeEvent     Type = "event"
)

// ValidTypes lists the accepted episode types.
var ValidTypes = []Type{TypeStory, TypeCharacter, TypeConcept, TypeEtymology, TypePractice, TypeEvent}

// Source records the provenance of an episode within its source text.
type Source struct {
	Book  string `yaml:"book" json:"book"`
	Sarga string `yaml:"sarga" json:"sarga"` // chapter/section reference, may be empty
}

// Episode is a discrete unit of knowledge extracted from a source document.
type Episode struct {
	ID        string   `yaml:"id" json:"id"`
	Type      Type     `yaml:"type" json:"type"`
	Keywords  []string `yaml:"keywords" json:"keywords"`
	Source    Source   `yaml:"source" json:"source"`
	SummaryEn string   `yaml:"summary_en" json:"summary_en"`
	SummaryHi string   `yaml:"summary_hi" json:"summary_hi"`

	// ChunkIndex is the 0-based index of the chunk that produced this
	// candidate. It orders the dedupe pass and is not persisted.
	ChunkIndex int `yaml:"-" json:"-"`
}

// Validate checks that an episode is well-formed enough to index.
func (e Episode) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("episode has no id")
	}
	if e.Type != "" && !isValidType(e.Type) {
		return fmt.Errorf("episode %q has invalid type %q", e.ID, e.Type)
	}
	return nil
}

func isValidType(t Type) bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// EmbeddingText returns the text embedded for this episode: the English and
// Hindi summaries joined. Empty means the episode is not embeddable.
func (e Episode) EmbeddingText() string {
	return strings.TrimSpace(e.SummaryEn + " " + e.SummaryHi)
}

// Dedupe merges candidate episodes into a unique-by-id set.
//
// Candidates are first ordered by ChunkIndex (stable, so in-chunk order is
// preserved) and then merged in a single pass: the last occurrence of an id
// replaces any earlier one outright, on the assumption that later chunks
// carry corrected or more complete context. Candidates without an id are
// discarded.
func Dedupe(candidates []Episode) []Episode {
	ordered := make([]Episode, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ChunkIndex < ordered[j].ChunkIndex
	})

	seen := make(map[string]int) // id -> position in result
	var result []Episode
	for _, ep := range ordered {
		if ep.ID == "" {
			continue
		}
		if pos, ok := seen[ep.ID]; ok {
			result[pos] = ep
			continue
		}
		seen[ep.ID] = len(result)
		result = append(result, ep)
	}
	return result
}
