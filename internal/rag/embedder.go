package rag

import (
	"context"
	"fmt"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/providers"
	"supportbot/internal/util"
)

// Embedder turns text into vectors through one embedding provider, in
// batches of at most batchSize inputs.
type Embedder struct {
	provider  providers.EmbeddingProvider
	batchSize int
	dim       int
	timeout   time.Duration
}

func NewEmbedder(p providers.EmbeddingProvider, cfg config.Config) *Embedder {
	batch := cfg.RAG.BatchSize
	if batch <= 0 {
		batch = 16
	}
	return &Embedder{
		provider:  p,
		batchSize: batch,
		dim:       cfg.EmbedDim,
		timeout:   cfg.RAG.Timeouts.Embed,
	}
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	err := e.EmbedBatches(ctx, texts, func(_ int, vectors [][]float32) error {
		out = append(out, vectors...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedBatches embeds texts batch by batch and hands each successful batch to
// fn together with the offset of its first text. fn is never called for a
// batch whose embedding failed, and an error from fn stops the run.
func (e *Embedder) EmbedBatches(ctx context.Context, texts []string, fn func(offset int, vectors [][]float32) error) error {
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, providers.OperationEmbed, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if err := fn(start, vectors); err != nil {
			return err
		}
	}
	return nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, providers.OperationEmbedQuery, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, op string, batch []string) ([][]float32, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", util.ErrEmbeddingService)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	vectors, info, err := e.provider.Embed(ctx, providers.EmbedRequest{
		Operation: op,
		Inputs:    batch,
		Dimension: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", util.ErrEmbeddingService, info.Name, err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs", util.ErrEmbeddingService, info.Name, len(vectors), len(batch))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: %s returned an empty vector at %d", util.ErrEmbeddingService, info.Name, i)
		}
	}
	return vectors, nil
}
