// Package verse reads and updates verse markdown files: YAML frontmatter
// followed by a markdown body.
package verse

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kathalabs/katha/internal/episode"
	"github.com/kathalabs/katha/internal/puranic"
)

// contextKey is the frontmatter key holding generated context entries.
const contextKey = "puranic_context"

// File is one parsed verse file. The frontmatter is kept as a YAML node so
// updates preserve the author's field order.
type File struct {
	front *yaml.Node // mapping node, nil when the file has no frontmatter
	Body  string
}

// Parse reads and parses a verse file. A file without a frontmatter block
// parses as all body.
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading verse file: %w", err)
	}
	return parseContent(string(data))
}

func parseContent(content string) (*File, error) {
	if !strings.HasPrefix(content, "---") {
		return &File{Body: content}, nil
	}

	rest := content[3:]
	end := strings.Index(rest, "---")
	if end < 0 {
		return &File{Body: content}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(rest[:end]), &doc); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	f := &File{Body: rest[end+3:]}
	if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode {
		f.front = doc.Content[0]
	}
	return f, nil
}

// Update writes the file back with the current frontmatter and body.
func (f *File) Update(path string) error {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	if f.front != nil {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.front); err != nil {
			return fmt.Errorf("encoding frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding frontmatter: %w", err)
		}
	}
	buf.WriteString("---")
	buf.WriteString(f.Body)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing verse file: %w", err)
	}
	return nil
}

// value returns the value node for a frontmatter key, or nil.
func (f *File) value(key string) *yaml.Node {
	if f.front == nil {
		return nil
	}
	c := f.front.Content
	for i := 0; i+1 < len(c); i += 2 {
		if c[i].Value == key {
			return c[i+1]
		}
	}
	return nil
}

// String returns a scalar frontmatter field, or "".
func (f *File) String(key string) string {
	node := f.value(key)
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return node.Value
}

// EnglishText returns a frontmatter field that is either a plain scalar or a
// bilingual {en, hi} mapping, flattened to its English text.
func (f *File) EnglishText(key string) string {
	node := f.value(key)
	if node == nil {
		return ""
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return ""
		}
		return node.Value
	case yaml.MappingNode:
		c := node.Content
		for i := 0; i+1 < len(c); i += 2 {
			if c[i].Value == "en" && c[i+1].Kind == yaml.ScalarNode {
				return c[i+1].Value
			}
		}
	}
	return ""
}

// HasContext reports whether the verse already carries non-empty context
// entries.
func (f *File) HasContext() bool {
	node := f.value(contextKey)
	if node == nil {
		return false
	}
	switch node.Kind {
	case yaml.SequenceNode, yaml.MappingNode:
		return len(node.Content) > 0
	case yaml.ScalarNode:
		return node.Tag != "!!null" && node.Value != ""
	}
	return false
}

// SetContext replaces the verse's context entries, appending the key when
// absent so existing frontmatter fields keep their position.
func (f *File) SetContext(entries []episode.ContextEntry) error {
	var node yaml.Node
	if err := node.Encode(entries); err != nil {
		return fmt.Errorf("encoding context entries: %w", err)
	}

	if f.front == nil {
		f.front = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	c := f.front.Content
	for i := 0; i+1 < len(c); i += 2 {
		if c[i].Value == contextKey {
			f.front.Content[i+1] = &node
			return nil
		}
	}
	f.front.Content = append(f.front.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: contextKey},
		&node)
	return nil
}

// SearchFields flattens the fields retrieval queries are built from.
func (f *File) SearchFields() map[string]string {
	return map[string]string{
		"devanagari":           f.String("devanagari"),
		"transliteration":      f.String("transliteration"),
		"translation":          f.EnglishText("translation"),
		"interpretive_meaning": f.EnglishText("interpretive_meaning"),
		"literal_translation":  f.EnglishText("literal_translation"),
	}
}

// ContextVerse assembles the prompt fields for context generation.
func (f *File) ContextVerse(verseID string) puranic.Verse {
	return puranic.Verse{
		ID:                  verseID,
		Title:               f.String("title_en"),
		Devanagari:          f.String("devanagari"),
		Transliteration:     f.String("transliteration"),
		Translation:         f.EnglishText("translation"),
		InterpretiveMeaning: f.EnglishText("interpretive_meaning"),
		LiteralTranslation:  f.EnglishText("literal_translation"),
		Story:               f.EnglishText("story"),
	}
}
