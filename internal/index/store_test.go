package index

import (
	"os"
	"testing"

	"github.com/kathalabs/katha/internal/config"
	"github.com/kathalabs/katha/internal/episode"
)

func sampleEpisodes() []episode.Episode {
	return []episode.Episode{
		{
			ID:        "hanuman-birth-story",
			Type:      episode.TypeStory,
			Keywords:  []string{"hanuman", "anjana"},
			Source:    episode.Source{Book: "Valmiki Ramayana", Sarga: "Kishkindha 66"},
			SummaryEn: "Hanuman is born to Anjana.",
			SummaryHi: "हनुमान का जन्म।",
		},
		{
			ID:        "vayu-boon",
			Type:      episode.TypeConcept,
			SummaryEn: "Vayu's boon to his son.",
		},
	}
}

func sampleRecords() []EmbeddingRecord {
	return []EmbeddingRecord{
		{ID: "hanuman-birth-story", Embedding: []float32{1, 0, 0}},
		{ID: "vayu-boon", Embedding: []float32{0, 1, 0}},
	}
}

func sampleMeta() Meta {
	return Meta{
		SourceFile:        "valmiki-ramayana.pdf",
		SourceName:        "Valmiki Ramayana",
		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
		ChunkSize:         4000,
	}
}

func TestWriteIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if store.IsIndexed("valmiki-ramayana") {
		t.Error("key should not be indexed before write")
	}

	if err := store.WriteIndex("valmiki-ramayana", sampleEpisodes(), sampleRecords(), sampleMeta()); err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}

	if !store.IsIndexed("valmiki-ramayana") {
		t.Error("key should be indexed after write")
	}
	if store.IsIndexed("unknown-source") {
		t.Error("unknown key should not be indexed")
	}

	eps, err := store.LoadEpisodes("valmiki-ramayana")
	if err != nil {
		t.Fatalf("LoadEpisodes failed: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(eps))
	}
	if eps[0].ID != "hanuman-birth-story" || eps[0].SummaryHi != "हनुमान का जन्म।" {
		t.Errorf("episode round trip mismatch: %+v", eps[0])
	}
	if eps[0].Source.Book != "Valmiki Ramayana" {
		t.Errorf("source round trip mismatch: %+v", eps[0].Source)
	}

	records, err := store.LoadEmbeddings("valmiki-ramayana")
	if err != nil {
		t.Fatalf("LoadEmbeddings failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "hanuman-birth-story" {
		t.Errorf("embedding round trip mismatch: %+v", records)
	}

	meta, err := store.LoadMeta("valmiki-ramayana")
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if meta.EpisodeCount != 2 {
		t.Errorf("episode_count should be set on write, got %d", meta.EpisodeCount)
	}
	if meta.GeneratedAt == "" {
		t.Error("generated_at should be stamped on write")
	}

	model, err := store.EmbeddingModel("valmiki-ramayana")
	if err != nil {
		t.Fatalf("EmbeddingModel failed: %v", err)
	}
	if model != "text-embedding-3-small" {
		t.Errorf("unexpected model %q", model)
	}
}

func TestLoadUnindexedKey(t *testing.T) {
	store := NewStore(t.TempDir())

	eps, err := store.LoadEpisodes("missing")
	if err != nil || len(eps) != 0 {
		t.Errorf("unindexed key should yield empty episodes, got %v, %v", eps, err)
	}
	records, err := store.LoadEmbeddings("missing")
	if err != nil || len(records) != 0 {
		t.Errorf("unindexed key should yield empty embeddings, got %v, %v", records, err)
	}
	model, err := store.EmbeddingModel("missing")
	if err != nil || model != "" {
		t.Errorf("unindexed key should yield empty model, got %q, %v", model, err)
	}
}

func TestWriteIndexOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.WriteIndex("src", sampleEpisodes(), sampleRecords(), sampleMeta()); err != nil {
		t.Fatal(err)
	}

	replacement := []episode.Episode{{ID: "new-episode", SummaryEn: "Fresh extraction."}}
	newRecords := []EmbeddingRecord{{ID: "new-episode", Embedding: []float32{0, 0, 1}}}
	if err := store.WriteIndex("src", replacement, newRecords, sampleMeta()); err != nil {
		t.Fatal(err)
	}

	eps, err := store.LoadEpisodes("src")
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0].ID != "new-episode" {
		t.Errorf("old episode set should be fully replaced, got %+v", eps)
	}

	records, err := store.LoadEmbeddings("src")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "new-episode" {
		t.Errorf("old embeddings should be fully replaced, got %+v", records)
	}
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	registry, err := store.LoadRegistry()
	if err != nil {
		t.Fatalf("missing registry should load as empty: %v", err)
	}
	if len(registry) != 0 {
		t.Errorf("expected empty registry, got %v", registry)
	}

	if err := store.WriteIndex("beta-src", sampleEpisodes(), sampleRecords(), sampleMeta()); err != nil {
		t.Fatal(err)
	}
	meta := sampleMeta()
	meta.SourceFile = "alpha.txt"
	if err := store.WriteIndex("alpha-src", sampleEpisodes(), sampleRecords(), meta); err != nil {
		t.Fatal(err)
	}

	registry, err = store.LoadRegistry()
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := registry["beta-src"]
	if !ok || !entry.Enabled {
		t.Errorf("registry entry should exist and be enabled, got %+v", entry)
	}
	if entry.Format != "pdf" {
		t.Errorf("format should derive from source file extension, got %q", entry.Format)
	}
	if registry["alpha-src"].Format != "txt" {
		t.Errorf("format should be txt, got %q", registry["alpha-src"].Format)
	}

	keys, err := store.EnabledSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "alpha-src" || keys[1] != "beta-src" {
		t.Errorf("enabled sources should be sorted, got %v", keys)
	}
}

func TestIsIndexedRequiresBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.WriteIndex("src", sampleEpisodes(), sampleRecords(), sampleMeta()); err != nil {
		t.Fatal(err)
	}

	// Registry entry without the metadata artifact is not "indexed".
	if err := os.Remove(config.IndexPath(dir, "src")); err != nil {
		t.Fatal(err)
	}
	if store.IsIndexed("src") {
		t.Error("key with missing metadata artifact should not count as indexed")
	}
}
