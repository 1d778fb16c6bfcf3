package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPPORTBOT_CHUNK_SIZE", "")
	t.Setenv("SUPPORTBOT_TOP_K", "")
	cfg := Load()
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 8, cfg.RAG.TopK)
	assert.Equal(t, 16, cfg.RAG.BatchSize)
	assert.Equal(t, 5, cfg.RAG.MaxVariants)
	assert.InDelta(t, 0.35, cfg.RAG.SimilarityThreshold, 1e-9)
	assert.Equal(t, "gpt-4o-mini", cfg.RAG.CompletionModel)
	assert.Equal(t, "text-embedding-3-small", cfg.RAG.EmbeddingModel)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SUPPORTBOT_TOP_K", "4")
	t.Setenv("SUPPORTBOT_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("SUPPORTBOT_SEARCH_TIMEOUT", "3s")
	t.Setenv("SUPPORTBOT_DEDUP_VARIANTS", "false")
	t.Setenv("SUPPORTBOT_BATCH_SIZE", "not-a-number")
	cfg := Load()
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.InDelta(t, 0.5, cfg.RAG.SimilarityThreshold, 1e-9)
	assert.Equal(t, 3*time.Second, cfg.RAG.Timeouts.Search)
	assert.False(t, cfg.RAG.DedupVariants)
	assert.Equal(t, 16, cfg.RAG.BatchSize)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportbot.yaml")
	body := `
vector_backend: memory
rag:
  top_k: 3
  chunk_size: 500
  chunk_overlap: 50
  timeouts:
    completion: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := Load()
	require.NoError(t, LoadFile(path, &cfg))
	assert.Equal(t, "memory", cfg.VectorBackend)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 90*time.Second, cfg.RAG.Timeouts.Completion)
	// untouched keys keep env defaults
	assert.Equal(t, 16, cfg.RAG.BatchSize)
}

func TestValidateRejectsBadChunking(t *testing.T) {
	cfg := Load()
	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
	require.Error(t, cfg.Validate())

	cfg = Load()
	cfg.RAG.SimilarityThreshold = 1.5
	require.Error(t, cfg.Validate())

	cfg = Load()
	cfg.VectorBackend = "faiss"
	require.Error(t, cfg.Validate())
}

func TestLoadTOMLFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportbot.toml")
	body := `
vector_backend = "sqlite"
sqlite_path = "/tmp/sb.db"
rate_limit_rps = 2.5

[rag]
top_k = 6
dedup_variants = false

[rag.timeouts]
embed = "45s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := Load()
	require.NoError(t, LoadFile(path, &cfg))
	assert.Equal(t, "sqlite", cfg.VectorBackend)
	assert.Equal(t, "/tmp/sb.db", cfg.SQLitePath)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.False(t, cfg.RAG.DedupVariants)
	assert.Equal(t, 45*time.Second, cfg.RAG.Timeouts.Embed)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("rag = [unterminated"), 0o644))
	cfg := Load()
	require.Error(t, LoadFile(path, &cfg))
}
