package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaProvider serves local chat and embeddings through the Ollama API.
// Example embedding model: nomic-embed-text (Nomic Embed v1.5 family).
type OllamaProvider struct {
	alias      string
	client     *api.Client
	chatModel  string
	embedModel string
}

func NewOllamaProvider(alias string) (*OllamaProvider, error) {
	host := envconfig.Host()
	if raw := strings.TrimSpace(os.Getenv("SUPPORTBOT_OLLAMA_BASE_URL")); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ollama base url: %w", err)
		}
		host = u
	}
	chatModel := strings.TrimSpace(os.Getenv("SUPPORTBOT_OLLAMA_CHAT_MODEL"))
	if chatModel == "" {
		chatModel = "llama3.2"
	}
	return &OllamaProvider{
		alias:      alias,
		client:     api.NewClient(host, &http.Client{Timeout: 90 * time.Second}),
		chatModel:  chatModel,
		embedModel: resolveOllamaEmbedModel(alias),
	}, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.embedModel, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{Model: o.embedModel, Input: req.Inputs})
	if err != nil {
		return nil, info, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	if len(resp.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, matchDimension(e, req.Dimension))
	}
	return out, info, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.chatModel, Key: o.alias}
	msgs := make([]api.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	var sb strings.Builder
	err := o.client.Chat(ctx, &api.ChatRequest{
		Model:    o.chatModel,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": req.Temperature},
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("ollama chat request failed: %w", err)
	}
	return GenerateResponse{Text: sb.String()}, info, nil
}

func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		key := "SUPPORTBOT_OLLAMA_EMBED_MODEL_" + sanitizeEnvToken(alias)
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "nomic":
			return "nomic-embed-text"
		case "bge":
			return "bge-small-en-v1.5"
		case "minilm":
			return "all-minilm"
		}
		// ollama:mxbai-embed-large names the model directly
		if strings.ContainsAny(alias, "-/.") {
			return alias
		}
	}
	if v := strings.TrimSpace(os.Getenv("SUPPORTBOT_OLLAMA_EMBED_MODEL")); v != "" {
		return v
	}
	return "nomic-embed-text"
}

func sanitizeEnvToken(s string) string {
	return strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(strings.ToUpper(s))
}

// matchDimension pads or truncates v to target so vectors fit the store column.
func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
