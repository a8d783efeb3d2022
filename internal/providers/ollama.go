package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama talks to Ollama and LM Studio through their OpenAI-compatible
// API. Useful for keeping review traffic entirely local.
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama provider. No API key is required by
// default; REDLINE_OLLAMA_API_KEY covers servers that want one. Local
// models can be slow, so the default timeout is generous.
func NewOllama(model string, timeout time.Duration) (*Ollama, error) {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &Ollama{
		apiKey:  os.Getenv("REDLINE_OLLAMA_API_KEY"),
		model:   model,
		baseURL: baseURL + "/v1/chat/completions",
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, req Request) (Response, error) {
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	return completeChat(ctx, o.client, o.baseURL, headers, o.model, req)
}
