package llm

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// NewOpenAIClient builds an openai-go client for an OpenAI-compatible
// endpoint. The SDK's automatic retries are switched off: each call to a
// provider is exactly one attempt.
func NewOpenAIClient(apiKey, baseURL string, opts ...option.RequestOption) openai.Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	return openai.NewClient(append(base, opts...)...)
}
