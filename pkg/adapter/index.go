package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// ErrIndexUnavailable marks vector index failures. During ingest they are
// recoverable (the record persists and a repair pass can re-embed); during
// retrieval they are surfaced to the caller.
var ErrIndexUnavailable = goerr.New("vector index unavailable")

// VectorMatch is a single similarity query hit. Matches arrive ordered by
// descending score; ties keep the index's native order.
type VectorMatch struct {
	ID    string
	Score float64
}

// VectorIndex is a namespaced vector store keyed by opaque string IDs.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace, id string, vector []float32) error
	Exists(ctx context.Context, namespace, id string) (bool, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]VectorMatch, error)
	DeleteAll(ctx context.Context, namespace string) error
	Count(ctx context.Context, namespace string) (int64, error)
}
