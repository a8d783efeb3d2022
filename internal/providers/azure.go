package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultAzureAPIVersion = "2025-04-01-preview"

// Azure talks to an Azure OpenAI deployment. The model name is the
// deployment name.
type Azure struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
}

// NewAzure creates an Azure OpenAI provider. Requires
// AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT.
func NewAzure(deployment string, timeout time.Duration) (*Azure, error) {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	key := os.Getenv("AZURE_OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_API_KEY environment variable is not set")
	}
	endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT environment variable is not set")
	}
	apiVersion := os.Getenv("AZURE_OPENAI_API_VERSION")
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}
	return &Azure{
		apiKey:     key,
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (a *Azure) Name() string { return "azure" }

func (a *Azure) Complete(ctx context.Context, req Request) (Response, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, url.PathEscape(a.deployment), url.QueryEscape(a.apiVersion))
	headers := map[string]string{"api-key": a.apiKey}
	// Azure routes by deployment path; the body carries no model field.
	return completeChat(ctx, a.client, endpoint, headers, "", req)
}
