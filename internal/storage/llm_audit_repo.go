package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	Operation    string
	ProviderName string
	Model        string
	RequestID    string
	Status       string
	ErrorType    string
	LatencyMS    int64
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(operation, provider_name, model, request_id, status, error_type, latency_ms)
VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), $7)`,
		rec.Operation, rec.ProviderName, rec.Model, rec.RequestID, rec.Status, rec.ErrorType, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
