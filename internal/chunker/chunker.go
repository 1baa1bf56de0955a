// Package chunker splits source text into paragraph-aligned chunks sized
// for a single structuring-model call.
package chunker

import "strings"

// DefaultChunkSize is the default target chunk size in characters.
const DefaultChunkSize = 4000

// separatorLen accounts for the blank-line separator reinserted between
// paragraphs when a chunk is joined back together.
const separatorLen = 2

// Chunk splits text into chunks of roughly maxChars characters.
//
// Paragraphs (blank-line separated) are accumulated into the current chunk
// until the running size exceeds maxChars, at which point the chunk is
// flushed and a new one started. Paragraphs are never split: a single
// paragraph longer than maxChars becomes a chunk of its own.
//
// Empty input produces no chunks.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		current = append(current, para)
		currentLen += len(para) + separatorLen

		if currentLen > maxChars {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			currentLen = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}
