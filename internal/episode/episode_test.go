package episode

import (
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ep      Episode
		wantErr bool
	}{
		{"valid", Episode{ID: "rama-exile", Type: TypeStory}, false},
		{"missing id", Episode{Type: TypeStory}, true},
		{"invalid type", Episode{ID: "x", Type: "legend"}, true},
		{"empty type tolerated", Episode{ID: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ep.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	ep := Episode{SummaryEn: "Hanuman leaps the ocean.", SummaryHi: "हनुमान समुद्र लांघते हैं।"}
	want := "Hanuman leaps the ocean. हनुमान समुद्र लांघते हैं।"
	if got := ep.EmbeddingText(); got != want {
		t.Errorf("EmbeddingText() = %q, want %q", got, want)
	}

	if got := (Episode{}).EmbeddingText(); got != "" {
		t.Errorf("empty episode should have empty embedding text, got %q", got)
	}

	onlyEn := Episode{SummaryEn: "English only."}
	if got := onlyEn.EmbeddingText(); got != "English only." {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestDedupeLastWriteWins(t *testing.T) {
	candidates := []Episode{
		{ID: "hanuman-birth-story", SummaryEn: "summary A", ChunkIndex: 1},
		{ID: "rama-exile", SummaryEn: "exile", ChunkIndex: 2},
		{ID: "hanuman-birth-story", SummaryEn: "summary B", ChunkIndex: 4},
	}

	got := Dedupe(candidates)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique episodes, got %d", len(got))
	}
	if got[0].ID != "hanuman-birth-story" || got[0].SummaryEn != "summary B" {
		t.Errorf("chunk-4 version should win outright, got %+v", got[0])
	}
	if got[1].ID != "rama-exile" {
		t.Errorf("expected rama-exile second, got %q", got[1].ID)
	}
}

func TestDedupeOrdersByChunkIndex(t *testing.T) {
	// Even if candidates arrive out of chunk order, the higher chunk index
	// wins: correctness must not depend on call-site sequencing.
	candidates := []Episode{
		{ID: "shared", SummaryEn: "from chunk 5", ChunkIndex: 5},
		{ID: "shared", SummaryEn: "from chunk 2", ChunkIndex: 2},
	}

	got := Dedupe(candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(got))
	}
	if got[0].SummaryEn != "from chunk 5" {
		t.Errorf("later chunk should win, got %q", got[0].SummaryEn)
	}
}

func TestDedupeDiscardsMissingID(t *testing.T) {
	got := Dedupe([]Episode{{SummaryEn: "no id"}, {ID: "keep"}})
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("episodes without an id should be discarded, got %+v", got)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	candidates := []Episode{
		{ID: "a", ChunkIndex: 0},
		{ID: "b", ChunkIndex: 1},
		{ID: "a", SummaryEn: "later", ChunkIndex: 3},
	}

	once := Dedupe(candidates)
	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedupe(dedupe(x)) != dedupe(x)\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestContextEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   ContextEntry
		wantErr bool
	}{
		{"valid", ContextEntry{ID: "x", Type: ContextCrossReference, Priority: PriorityHigh}, false},
		{"missing id", ContextEntry{Type: ContextStory}, true},
		{"event not a context type", ContextEntry{ID: "x", Type: "event"}, true},
		{"bad priority", ContextEntry{ID: "x", Priority: "urgent"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
