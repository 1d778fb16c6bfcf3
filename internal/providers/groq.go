package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqProvider talks to Groq's OpenAI-compatible chat API. Groq has no
// embeddings endpoint, so it only serves as an LLM provider.
type GroqProvider struct {
	chat OpenAIProvider
}

func NewGroqProvider(keyName string) *GroqProvider {
	model := strings.TrimSpace(os.Getenv("SUPPORTBOT_GROQ_MODEL"))
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqProvider{chat: OpenAIProvider{
		name:      "groq",
		keyName:   keyName,
		apiKey:    resolveGroqKey(keyName),
		baseURL:   "https://api.groq.com/openai/v1",
		chatModel: model,
		client:    &http.Client{Timeout: 60 * time.Second},
	}}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return g.chat.Generate(ctx, req)
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("SUPPORTBOT_GROQ_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
