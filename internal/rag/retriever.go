package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/util"
	"supportbot/internal/vector"

	"golang.org/x/sync/errgroup"
)

const maxParallelVariants = 6

// Retriever runs one similarity search per query variant and merges the
// results. A failing variant is dropped; only a total failure is an error.
type Retriever struct {
	expander  *Expander
	embedder  *Embedder
	store     vector.Store
	threshold float64
	topK      int
	dedup     bool
	timeout   time.Duration
	log       *logging.Logger
}

func NewRetriever(expander *Expander, embedder *Embedder, store vector.Store, cfg config.RAGConfig, log *logging.Logger) *Retriever {
	if log == nil {
		log = logging.Nop()
	}
	return &Retriever{
		expander:  expander,
		embedder:  embedder,
		store:     store,
		threshold: cfg.SimilarityThreshold,
		topK:      cfg.TopK,
		dedup:     cfg.DedupVariants,
		timeout:   cfg.Timeouts.Search,
		log:       log.With("component", "retriever"),
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", util.ErrInvalidParameter)
	}
	if topK <= 0 {
		topK = r.topK
	}

	variants := r.expander.Expand(ctx, query)
	if r.dedup {
		variants = DedupVariants(variants)
	}

	results := make([][]models.Match, len(variants))
	errs := make([]error, len(variants))
	var g errgroup.Group
	g.SetLimit(maxParallelVariants)
	for i, v := range variants {
		g.Go(func() error {
			matches, err := r.searchVariant(ctx, v, topK)
			if err != nil {
				r.log.Warn("variant search failed", "variant", v, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = matches
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(variants) {
		return nil, fmt.Errorf("%w: all %d query variants failed: %w", util.ErrRetrievalUnavailable, failed, errors.Join(errs...))
	}

	merged := MergeMatches(results, topK)
	r.log.Debug("retrieval complete", "variants", len(variants), "failed", failed, "matches", len(merged))
	return merged, nil
}

func (r *Retriever) searchVariant(ctx context.Context, variant string, topK int) ([]models.Match, error) {
	vec, err := r.embedder.EmbedQuery(ctx, variant)
	if err != nil {
		return nil, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.store.Search(ctx, vec, r.threshold, topK)
}

// DedupVariants drops variants that repeat an earlier one, ignoring case and
// surrounding whitespace. Order of first occurrence is kept.
func DedupVariants(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		key := strings.ToLower(strings.TrimSpace(v))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeMatches keeps the highest similarity seen per chunk, orders by
// similarity descending with ties broken by chunk index, and truncates to
// topK.
func MergeMatches(lists [][]models.Match, topK int) []models.Match {
	best := map[string]models.Match{}
	for _, list := range lists {
		for _, m := range list {
			if cur, ok := best[m.ChunkID]; !ok || m.Similarity > cur.Similarity {
				best[m.ChunkID] = m
			}
		}
	}
	out := make([]models.Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkID < b.ChunkID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
