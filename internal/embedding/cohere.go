package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCohereURL is the Cohere API base URL.
	DefaultCohereURL = "https://api.cohere.com/v1"

	// DefaultCohereModel is the multilingual embedding model, suited to
	// mixed Sanskrit/Hindi/English summaries.
	DefaultCohereModel = "embed-multilingual-v3.0"

	// DefaultCohereDimensions is the output dimensionality of embed-multilingual-v3.0.
	DefaultCohereDimensions = 1024

	// cohereRateLimit caps embedding requests per second.
	cohereRateLimit = 10.0
)

// CohereProvider generates embeddings using the Cohere embed API. The
// backend embeds asymmetrically: documents use search_document and queries
// use search_query, so the same text embeds differently per side.
type CohereProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	limiter    *rate.Limiter
}

// CohereOption configures a CohereProvider.
type CohereOption func(*CohereProvider)

// WithCohereBaseURL sets the API base URL (for testing).
func WithCohereBaseURL(url string) CohereOption {
	return func(p *CohereProvider) {
		p.baseURL = url
	}
}

// WithCohereAPIKey sets the API key.
func WithCohereAPIKey(key string) CohereOption {
	return func(p *CohereProvider) {
		p.apiKey = key
	}
}

// NewCohereProvider creates a new Cohere embedding provider. The API key
// defaults to the COHERE_API_KEY environment variable.
func NewCohereProvider(opts ...CohereOption) *CohereProvider {
	p := &CohereProvider{
		baseURL:    DefaultCohereURL,
		model:      DefaultCohereModel,
		dimensions: DefaultCohereDimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cohereRateLimit), 1),
	}
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		p.apiKey = key
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates a unit-norm embedding for the given text.
func (p *CohereProvider) Embed(ctx context.Context, text string, input InputType) (Embedding, error) {
	if text == "" {
		return Embedding{}, ErrEmptyText
	}
	if input == "" {
		input = SearchDocument
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return Embedding{}, err
	}

	body, err := json.Marshal(cohereEmbedRequest{
		Model:     p.model,
		Texts:     []string{text},
		InputType: string(input),
	})
	if err != nil {
		return Embedding{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return Embedding{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Embedding{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Embedding{}, fmt.Errorf("cohere embed returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var result cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Embedding{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return Embedding{}, fmt.Errorf("cohere embed returned no vector")
	}
	if len(result.Embeddings[0]) != p.dimensions {
		return Embedding{}, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(result.Embeddings[0]), p.dimensions)
	}

	return Embedding{Vector: result.Embeddings[0]}.Normalize(), nil
}

// Name returns the backend identifier.
func (p *CohereProvider) Name() string {
	return BackendCohere
}

// ModelName returns the id of the embedding model.
func (p *CohereProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *CohereProvider) Dimensions() int {
	return p.dimensions
}
