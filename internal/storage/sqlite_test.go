package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetEmbeddingMetadata(t *testing.T) {
	db := openTestDB(t)

	meta := EmbeddingMetadata{
		SourceKey:   "valmiki-ramayana",
		EpisodeID:   "hanuman-birth-story",
		ModelName:   "text-embedding-3-small",
		IndexedAt:   time.Now().Unix(),
		SummaryHash: HashSummary("Hanuman is born to Anjana."),
	}
	if err := db.SaveEmbeddingMetadata(meta); err != nil {
		t.Fatalf("SaveEmbeddingMetadata failed: %v", err)
	}

	got, err := db.GetEmbeddingMetadata("valmiki-ramayana", "hanuman-birth-story")
	if err != nil {
		t.Fatalf("GetEmbeddingMetadata failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected metadata, got nil")
	}
	if got.ModelName != meta.ModelName || got.SummaryHash != meta.SummaryHash {
		t.Errorf("metadata mismatch: %+v", got)
	}

	missing, err := db.GetEmbeddingMetadata("valmiki-ramayana", "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown episode, got %+v", missing)
	}
}

func TestSaveEmbeddingMetadataUpsert(t *testing.T) {
	db := openTestDB(t)

	meta := EmbeddingMetadata{SourceKey: "src", EpisodeID: "ep", ModelName: "m1", IndexedAt: 1, SummaryHash: "a"}
	if err := db.SaveEmbeddingMetadata(meta); err != nil {
		t.Fatal(err)
	}
	meta.ModelName = "m2"
	if err := db.SaveEmbeddingMetadata(meta); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetEmbeddingMetadata("src", "ep")
	if err != nil {
		t.Fatal(err)
	}
	if got.ModelName != "m2" {
		t.Errorf("expected upsert to replace, got %q", got.ModelName)
	}

	count, err := db.CountBySource("src")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after upsert, got %d", count)
	}
}

func TestClearSource(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []string{"a", "b"} {
		if err := db.SaveEmbeddingMetadata(EmbeddingMetadata{SourceKey: "src1", EpisodeID: id, ModelName: "m", IndexedAt: 1, SummaryHash: "h"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SaveEmbeddingMetadata(EmbeddingMetadata{SourceKey: "src2", EpisodeID: "c", ModelName: "m", IndexedAt: 1, SummaryHash: "h"}); err != nil {
		t.Fatal(err)
	}

	if err := db.ClearSource("src1"); err != nil {
		t.Fatalf("ClearSource failed: %v", err)
	}

	count, err := db.CountBySource("src1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("src1 should be cleared, got %d rows", count)
	}

	count, err = db.CountBySource("src2")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("src2 should be untouched, got %d rows", count)
	}
}

func TestHashSummaryDeterministic(t *testing.T) {
	a := HashSummary("same text")
	b := HashSummary("same text")
	if a != b {
		t.Error("hash should be deterministic")
	}
	if a == HashSummary("different text") {
		t.Error("different inputs should hash differently")
	}
}
