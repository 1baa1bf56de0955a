// Package puranic generates Puranic context entries for verses, grounded in
// retrieved episodes when any are available.
package puranic

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/llm"
)

// systemPrompt is the fixed schema contract for context generation.
const systemPrompt = `You are an expert in Hindu scriptures, Puranas, and devotional literature
(bhakti). You generate structured Puranic context boxes for verses from sacred texts like
Hanuman Chalisa, Sundar Kaand, Bajrang Baan, and Sankat Mochan Hanumanashtak.

Each context entry must be a YAML object with these fields:
  id: unique-slug (kebab-case)
  type: story | concept | character | etymology | practice | cross_reference
  priority: high | medium | low
  title:
    en: "English title"
    hi: "Hindi title in Devanagari"
  icon: single emoji
  story_summary:
    en: "2-4 sentence summary"
    hi: "Same in Hindi Devanagari"
  theological_significance:
    en: "2-4 sentences on spiritual meaning"
    hi: "Same in Hindi Devanagari"
  practical_application:
    en: "2-4 sentences on practical use"
    hi: "Same in Hindi Devanagari"
  source_texts:
    - text: "Scripture name"
      section: "Book/chapter/kanda"
  related_verses: []

Rules:
- Generate 1-3 entries per verse (only the most relevant references)
- For short invocations, closing verses, or verses with no meaningful Puranic
  content, return an empty list []
- Prioritise accuracy over quantity
- All Hindi text must be in Devanagari script
- Return ONLY valid YAML — no markdown fences, no explanation`

// generationTemperature allows a little synthesis latitude; grounding keeps
// the output tied to retrieved sources.
const generationTemperature = 0.3

// storyLimit caps how much of a verse's story field goes into the prompt.
const storyLimit = 800

// Completer is the completion surface the generator needs from an LLM client.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Verse carries the verse fields the generation prompt draws on. Bilingual
// fields are already flattened to their English text.
type Verse struct {
	ID                  string
	Title               string
	Devanagari          string
	Transliteration     string
	Translation         string
	InterpretiveMeaning string
	LiteralTranslation  string
	Story               string
}

// Generator produces context entries for one verse at a time.
type Generator struct {
	llm Completer
}

// NewGenerator creates a generator backed by the given completion client.
func NewGenerator(c Completer) *Generator {
	return &Generator{llm: c}
}

// Generate produces context entries for a verse. When grounding episodes are
// given, they are appended to the system prompt as source material and the
// model is instructed to stay within them. An empty result is a valid outcome
// for verses with no Puranic content.
func (g *Generator) Generate(ctx context.Context, v Verse, grounding []episode.Episode) ([]episode.ContextEntry, error) {
	system := systemPrompt
	if block := FormatEpisodes(grounding); block != "" {
		system += "\n\n" + block
	}

	raw, err := g.llm.Complete(ctx, system, buildPrompt(v), generationTemperature)
	if err != nil {
		return nil, fmt.Errorf("generating context for %q: %w", v.ID, err)
	}

	entries, err := ParseEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("verse %q: %w", v.ID, err)
	}
	return entries, nil
}

// buildPrompt assembles the user prompt from verse fields. Empty fields are
// omitted.
func buildPrompt(v Verse) string {
	title := v.Title
	if title == "" {
		title = v.ID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Verse: %s\n", title)
	fmt.Fprintf(&b, "Devanagari: %s\n", v.Devanagari)
	fmt.Fprintf(&b, "Transliteration: %s\n", v.Transliteration)

	meanings := []struct{ name, text string }{
		{"translation", v.Translation},
		{"interpretive_meaning", v.InterpretiveMeaning},
		{"literal_translation", v.LiteralTranslation},
	}
	for _, m := range meanings {
		if m.text != "" {
			fmt.Fprintf(&b, "%s: %s\n", m.name, m.text)
		}
	}

	if v.Story != "" {
		fmt.Fprintf(&b, "\nStory/Context: %s\n", truncate(v.Story, storyLimit))
	}

	b.WriteString(`
Generate Puranic context entries for this verse as a YAML list.
Return [] if the verse has no meaningful Puranic content.`)
	return b.String()
}

// FormatEpisodes renders retrieved episodes as a readable grounding block for
// the system prompt. Returns "" when there is nothing to ground on.
func FormatEpisodes(episodes []episode.Episode) string {
	if len(episodes) == 0 {
		return ""
	}

	lines := []string{"Relevant Puranic sources (use these as grounding material):"}
	for i, ep := range episodes {
		lines = append(lines, fmt.Sprintf("\n[%d] %s", i+1, ep.ID))

		ref := ep.Source.Book
		if ep.Source.Sarga != "" {
			ref += ", " + ep.Source.Sarga
		}
		if ref != "" {
			lines = append(lines, "    Source: "+ref)
		}
		if len(ep.Keywords) > 0 {
			lines = append(lines, "    Keywords: "+strings.Join(ep.Keywords, ", "))
		}
		if ep.SummaryEn != "" {
			lines = append(lines, "    Summary: "+ep.SummaryEn)
		}
	}
	return strings.Join(lines, "\n")
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

// ParseEntries parses a model response into typed context entries. Fence
// markers are stripped first. An empty or null document parses as zero
// entries; a non-list document or invalid YAML is an error. Entries that fail
// validation (no id, type or priority outside the schema) are discarded with
// a warning.
func ParseEntries(raw string) ([]episode.ContextEntry, error) {
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

	var entries []episode.ContextEntry
	if err := root.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding context entries: %w", err)
	}

	var valid []episode.ContextEntry
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: discarding context entry: %v\n", err)
			continue
		}
		valid = append(valid, entry)
	}
	return valid, nil
}
