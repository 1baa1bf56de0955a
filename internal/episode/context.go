package episode

import "fmt"

// ContextType classifies a generated context entry. The enumeration differs
// from episode types: event is absent and cross_reference is added.
type ContextType string

// Context entry types.
const (
	ContextStory          ContextType = "story"
	ContextConcept        ContextType = "concept"
	ContextCharacter      ContextType = "character"
	ContextEtymology      ContextType = "etymology"
	ContextPractice       ContextType = "practice"
	ContextCrossReference ContextType = "cross_reference"
)

// ValidContextTypes lists the accepted context entry types.
var ValidContextTypes = []ContextType{
	ContextStory, ContextConcept, ContextCharacter,
	ContextEtymology, ContextPractice, ContextCrossReference,
}

// Priority ranks a context entry's relevance to its verse.
type Priority string

// Context entry priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Bilingual holds parallel English and Hindi text.
type Bilingual struct {
	En string `yaml:"en" json:"en"`
	Hi string `yaml:"hi" json:"hi"`
}

// SourceText cites a scripture passage backing a context entry.
type SourceText struct {
	Text    string `yaml:"text" json:"text"`
	Section string `yaml:"section" json:"section"`
}

// ContextEntry is a retrieval-grounded context block attached to a verse.
// It is a fresh synthesis grounded by retrieved episodes, not required to
// reference any episode by id.
type ContextEntry struct {
	ID                      string       `yaml:"id" json:"id"`
	Type                    ContextType  `yaml:"type" json:"type"`
	Priority                Priority     `yaml:"priority" json:"priority"`
	Title                   Bilingual    `yaml:"title" json:"title"`
	Icon                    string       `yaml:"icon" json:"icon"`
	StorySummary            Bilingual    `yaml:"story_summary" json:"story_summary"`
	TheologicalSignificance Bilingual    `yaml:"theological_significance" json:"theological_significance"`
	PracticalApplication    Bilingual    `yaml:"practical_application" json:"practical_application"`
	SourceTexts             []SourceText `yaml:"source_texts" json:"source_texts"`
	RelatedVerses           []string     `yaml:"related_verses" json:"related_verses"`
}

// Validate checks that a context entry is well-formed.
func (c ContextEntry) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("context entry has no id")
	}
	if c.Type != "" && !isValidContextType(c.Type) {
		return fmt.Errorf("context entry %q has invalid type %q", c.ID, c.Type)
	}
	if c.Priority != "" && c.Priority != PriorityHigh && c.Priority != PriorityMedium && c.Priority != PriorityLow {
		return fmt.Errorf("context entry %q has invalid priority %q", c.ID, c.Priority)
	}
	return nil
}

func isValidContextType(t ContextType) bool {
	for _, v := range ValidContextTypes {
		if t == v {
			return true
		}
	}
	return false
}
