package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/sources/valmiki-ramayana.pdf", "valmiki-ramayana"},
		{"devi-bhagavata.txt", "devi-bhagavata"},
		{"/abs/path/notes.md", "notes"},
		{"no-extension", "no-extension"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Key(tt.path); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("valmiki-ramayana"); got != "Valmiki Ramayana" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayName("shiv-puran"); got != "Shiv Puran" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestExtractTextPlain(t *testing.T) {
	dir := t.TempDir()

	for _, ext := range []string{".txt", ".md"} {
		path := filepath.Join(dir, "source"+ext)
		content := "First paragraph.\n\nSecond paragraph."
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		got, err := ExtractText(path)
		if err != nil {
			t.Fatalf("ExtractText(%s) failed: %v", ext, err)
		}
		if got != content {
			t.Errorf("ExtractText(%s) = %q, want %q", ext, got, content)
		}
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("source.docx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
