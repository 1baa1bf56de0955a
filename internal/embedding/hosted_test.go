package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIProviderEmbed(t *testing.T) {
	var gotReq openAIEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		vec := make([]float32, 3)
		vec[0], vec[1], vec[2] = 3, 0, 4 // unnormalized on purpose
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(
		WithOpenAIBaseURL(server.URL),
		WithOpenAIAPIKey("test-key"),
		WithOpenAIModel("text-embedding-3-small", 3),
	)

	emb, err := p.Embed(context.Background(), "some text", SearchDocument)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if gotReq.Input != "some text" || gotReq.Model != "text-embedding-3-small" {
		t.Errorf("unexpected request %+v", gotReq)
	}

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("embedding should be normalized, norm^2 = %f", norm)
	}
}

func TestOpenAIProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream error", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewOpenAIProvider(WithOpenAIBaseURL(server.URL), WithOpenAIAPIKey("k"))
	if _, err := p.Embed(context.Background(), "text", SearchDocument); err == nil {
		t.Error("expected error for failing backend")
	}
}

func TestOpenAIProviderEmptyText(t *testing.T) {
	p := NewOpenAIProvider()
	if _, err := p.Embed(context.Background(), "", SearchQuery); err != ErrEmptyText {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestCohereProviderInputType(t *testing.T) {
	var gotReq cohereEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		vec := make([]float32, DefaultCohereDimensions)
		vec[0] = 1
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vec}})
	}))
	defer server.Close()

	p := NewCohereProvider(WithCohereBaseURL(server.URL), WithCohereAPIKey("k"))

	if _, err := p.Embed(context.Background(), "doc text", SearchDocument); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if gotReq.InputType != "search_document" {
		t.Errorf("expected search_document, got %q", gotReq.InputType)
	}
	if len(gotReq.Texts) != 1 || gotReq.Texts[0] != "doc text" {
		t.Errorf("unexpected texts %v", gotReq.Texts)
	}

	if _, err := p.Embed(context.Background(), "query text", SearchQuery); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if gotReq.InputType != "search_query" {
		t.Errorf("expected search_query, got %q", gotReq.InputType)
	}
}

func TestCohereProviderDimensionCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 2, 3}}})
	}))
	defer server.Close()

	p := NewCohereProvider(WithCohereBaseURL(server.URL), WithCohereAPIKey("k"))
	if _, err := p.Embed(context.Background(), "text", SearchDocument); err == nil {
		t.Error("expected dimension mismatch error")
	}
}
