package chunker

import (
	"strings"
	"testing"
)

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk("", 4000); got != nil {
		t.Errorf("expected no chunks for empty input, got %d", len(got))
	}
	if got := Chunk("\n\n\n\n  \n\n", 4000); got != nil {
		t.Errorf("expected no chunks for blank input, got %d", len(got))
	}
}

func TestChunkSingleParagraph(t *testing.T) {
	chunks := Chunk("A short paragraph.", 4000)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "A short paragraph." {
		t.Errorf("unexpected chunk content: %q", chunks[0])
	}
}

func TestChunkAccumulatesUntilBudgetExceeded(t *testing.T) {
	// Three 3000-char paragraphs with a 4000-char budget: the first two
	// accumulate into one chunk (the budget is exceeded only after the
	// second is added), the third starts a fresh chunk. Never three
	// chunks of ~3000 each.
	p1 := strings.Repeat("a", 3000)
	p2 := strings.Repeat("b", 3000)
	p3 := strings.Repeat("c", 3000)

	chunks := Chunk(p1+"\n\n"+p2+"\n\n"+p3, 4000)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != p1+"\n\n"+p2 {
		t.Errorf("first chunk should contain paragraphs 1 and 2")
	}
	if chunks[1] != p3 {
		t.Errorf("second chunk should contain paragraph 3 alone")
	}
}

func TestChunkOversizedParagraphKeptWhole(t *testing.T) {
	big := strings.Repeat("x", 10000)
	chunks := Chunk("small\n\n"+big+"\n\nafter", 4000)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "small\n\n"+big {
		t.Errorf("oversized paragraph should be flushed with the chunk it joined")
	}
	if chunks[1] != "after" {
		t.Errorf("trailing paragraph should start a new chunk, got %q", chunks[1])
	}

	// An oversized paragraph at the start of a chunk stands alone.
	chunks = Chunk(big+"\n\nafter", 4000)
	if len(chunks) != 2 || chunks[0] != big {
		t.Errorf("oversized leading paragraph should be its own chunk")
	}
}

func TestChunkLossless(t *testing.T) {
	paras := []string{
		"The first paragraph of the text.",
		"A second paragraph, somewhat longer than the first one.",
		"Third.",
		"The fourth and final paragraph, closing the passage.",
	}
	input := "  " + strings.Join(paras, "\n\n\n") + "\n\n"

	chunks := Chunk(input, 60)

	joined := strings.Join(chunks, "\n\n")
	expected := strings.Join(paras, "\n\n")
	if joined != expected {
		t.Errorf("concatenated chunks should reproduce all paragraphs in order\ngot:  %q\nwant: %q", joined, expected)
	}
}

func TestChunkDeterministic(t *testing.T) {
	input := strings.Repeat("para one\n\npara two\n\npara three\n\n", 50)
	a := Chunk(input, 100)
	b := Chunk(input, 100)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
