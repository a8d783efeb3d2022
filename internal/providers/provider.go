package providers

import (
	"context"
	"fmt"
	"time"
)

// Request is one completion call to an LLM.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the raw completion from an LLM.
type Response struct {
	Content    string
	TokensUsed int
}

// Completer is the provider abstraction.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// New creates a provider by name. Credentials and endpoints come from
// the environment, never from the config file. A zero timeout means
// each provider's default.
func New(provider, model string, timeout time.Duration) (Completer, error) {
	switch provider {
	case "azure":
		return NewAzure(model, timeout)
	case "openai":
		return NewOpenAI(model, timeout)
	case "anthropic":
		return NewAnthropic(model, timeout)
	case "ollama", "lmstudio":
		return NewOllama(model, timeout)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
