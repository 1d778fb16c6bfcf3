package providers

import (
	"fmt"

	"supportbot/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager builds the configured providers once at startup. Components get a
// single provider handle from it; there is no failover inside a request.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// LLM returns the preferred completion provider: the first non-mock entry.
func (m *Manager) LLM() (LLMProvider, ProviderRef) {
	i := preferredIndex(len(m.llmProviders), func(i int) string { return m.llmProviders[i].Ref.Name })
	return m.llmProviders[i].Provider, m.llmProviders[i].Ref
}

// Embedder returns the preferred embedding provider: the first non-mock entry.
func (m *Manager) Embedder() (EmbeddingProvider, ProviderRef) {
	i := preferredIndex(len(m.embedProviders), func(i int) string { return m.embedProviders[i].Ref.Name })
	return m.embedProviders[i].Provider, m.embedProviders[i].Ref
}

func (m *Manager) LLMRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.llmProviders))
	for _, p := range m.llmProviders {
		out = append(out, p.Ref)
	}
	return out
}

func (m *Manager) EmbedRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.embedProviders))
	for _, p := range m.embedProviders {
		out = append(out, p.Ref)
	}
	return out
}

func preferredIndex(n int, nameAt func(i int) string) int {
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			return i
		}
	}
	return 0
}

func buildProvider(ref ProviderRef, cfg config.Config) (any, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, cfg.RAG.CompletionModel, cfg.RAG.EmbeddingModel), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias)
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
