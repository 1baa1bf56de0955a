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
	// DefaultOpenAIURL is the OpenAI API base URL.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimensions is the output dimensionality of text-embedding-3-small.
	DefaultOpenAIDimensions = 1536

	// openAIRateLimit caps embedding requests per second.
	openAIRateLimit = 10.0
)

// OpenAIProvider generates embeddings using the OpenAI embeddings API.
// The backend embeds documents and queries symmetrically, so InputType
// is ignored.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	limiter    *rate.Limiter
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets the API base URL (for testing).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

// WithOpenAIAPIKey sets the API key.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.apiKey = key
	}
}

// WithOpenAIModel sets the embedding model and expected dimensions.
func WithOpenAIModel(model string, dims int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
		p.dimensions = dims
	}
}

// NewOpenAIProvider creates a new OpenAI embedding provider. The API key
// defaults to the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		baseURL:    DefaultOpenAIURL,
		model:      DefaultOpenAIModel,
		dimensions: DefaultOpenAIDimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(openAIRateLimit), 1),
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p.apiKey = key
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates a unit-norm embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string, _ InputType) (Embedding, error) {
	if text == "" {
		return Embedding{}, ErrEmptyText
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return Embedding{}, err
	}

	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: text})
	if err != nil {
		return Embedding{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
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
		return Embedding{}, fmt.Errorf("openai embeddings returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var result openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Embedding{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return Embedding{}, fmt.Errorf("openai embeddings returned no vector")
	}
	if len(result.Data[0].Embedding) != p.dimensions {
		return Embedding{}, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(result.Data[0].Embedding), p.dimensions)
	}

	return Embedding{Vector: result.Data[0].Embedding}.Normalize(), nil
}

// Name returns the backend identifier.
func (p *OpenAIProvider) Name() string {
	return BackendOpenAI
}

// ModelName returns the id of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}
