package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// InputType distinguishes document-side from query-side embedding for
// backends with asymmetric embedding conventions. Symmetric backends
// ignore it.
type InputType string

// Input types.
const (
	SearchDocument InputType = "search_document"
	SearchQuery    InputType = "search_query"
)

// ErrEmptyText is returned when a caller asks to embed an empty string.
// The check runs before any network call; callers skip the episode or query.
var ErrEmptyText = errors.New("cannot embed empty text")

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates a unit-norm embedding for the given text.
	Embed(ctx context.Context, text string, input InputType) (Embedding, error)

	// Name returns the backend identifier (e.g. "openai", "cohere").
	Name() string

	// ModelName returns the id of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// Backend identifiers accepted by ForName.
const (
	BackendOpenAI = "openai"
	BackendCohere = "cohere"
	BackendOllama = "ollama"
)

// ForName returns a provider for the given backend identifier.
func ForName(name string) (Provider, error) {
	switch name {
	case BackendOpenAI:
		return NewOpenAIProvider(), nil
	case BackendCohere:
		return NewCohereProvider(), nil
	case BackendOllama:
		return NewOllamaProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q (valid: %s, %s, %s)",
			name, BackendOpenAI, BackendCohere, BackendOllama)
	}
}

// BackendForModel maps a persisted embedding model id back to its backend
// identifier. Index artifacts store the model id; query-time embedding must
// use the same backend to keep vectors comparable.
func BackendForModel(model string) (string, error) {
	switch {
	case strings.HasPrefix(model, "text-embedding-"):
		return BackendOpenAI, nil
	case strings.HasPrefix(model, "embed-") || strings.HasPrefix(model, "cohere."):
		return BackendCohere, nil
	case strings.Contains(model, "minilm") || strings.Contains(model, ":"):
		return BackendOllama, nil
	default:
		return "", fmt.Errorf("cannot determine embedding backend for model %q", model)
	}
}

// ForModel returns a provider matching a persisted model id.
func ForModel(model string) (Provider, error) {
	backend, err := BackendForModel(model)
	if err != nil {
		return nil, err
	}
	return ForName(backend)
}
