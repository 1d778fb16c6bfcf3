package rag

import (
	"context"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/providers"
)

const expandSystemPrompt = "You generate short alternative phrasings of a question that mean the same thing. Return them comma-separated."

// Expander asks the LLM for paraphrases of a query. It never fails: any
// problem degrades to the query alone.
type Expander struct {
	llm         providers.LLMProvider
	maxVariants int
	timeout     time.Duration
	log         *logging.Logger
}

func NewExpander(llm providers.LLMProvider, cfg config.RAGConfig, log *logging.Logger) *Expander {
	if log == nil {
		log = logging.Nop()
	}
	return &Expander{
		llm:         llm,
		maxVariants: cfg.MaxVariants,
		timeout:     cfg.Timeouts.Expand,
		log:         log.With("component", "expander"),
	}
}

// Expand returns the query followed by up to maxVariants paraphrases.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	if e.llm == nil || e.maxVariants == 0 {
		return []string{query}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	resp, _, err := e.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   providers.OperationExpandQuery,
		System:      expandSystemPrompt,
		Prompt:      query,
		Temperature: 0,
	})
	if err != nil {
		e.log.Warn("query expansion failed, using original query", "error", err)
		return []string{query}
	}
	return append([]string{query}, ParseParaphrases(resp.Text, e.maxVariants)...)
}

// ParseParaphrases splits a comma-separated reply into at most max trimmed,
// non-empty items.
func ParseParaphrases(reply string, max int) []string {
	out := make([]string, 0, max)
	for _, part := range strings.Split(reply, ",") {
		if len(out) >= max {
			break
		}
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
