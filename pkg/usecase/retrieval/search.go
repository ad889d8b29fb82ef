package retrieval

import (
	"context"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/repository"
	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultTopK      = 5
	defaultThreshold = 0.1
)

// Engine resolves a natural-language search query to photo records via
// vector similarity.
type Engine struct {
	embedder adapter.Embedder
	index    adapter.VectorIndex
	repo     repository.Repository

	topK      int
	threshold float64
}

type Option func(*Engine)

// WithTopK sets how many nearest neighbors to request per query.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithThreshold sets the minimum similarity score a match must reach.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

func New(embedder adapter.Embedder, index adapter.VectorIndex, repo repository.Repository, opts ...Option) *Engine {
	e := &Engine{
		embedder:  embedder,
		index:     index,
		repo:      repo,
		topK:      defaultTopK,
		threshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search embeds the query text, finds nearest photo vectors, and loads the
// matching records. Matches below the similarity threshold are dropped.
// Index IDs that do not parse as photo IDs are logged and skipped; IDs with
// no backing record are silently omitted.
func (e *Engine) Search(ctx context.Context, query string) ([]*model.Photo, error) {
	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query", goerr.V("query", query))
	}

	matches, err := e.index.Query(ctx, model.NamespacePhotos, vec, e.topK)
	if err != nil {
		return nil, goerr.Wrap(err, "vector query failed", goerr.V("query", query))
	}

	var ids []model.PhotoID
	for _, match := range matches {
		if match.Score < e.threshold {
			continue
		}
		id, err := model.ParsePhotoID(match.ID)
		if err != nil {
			logging.From(ctx).Warn("skipping non-numeric index entry",
				"id", match.ID, "score", match.Score)
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	photos, err := e.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load matched photos")
	}

	logging.From(ctx).Debug("search resolved",
		"query", query,
		"matches", len(matches),
		"above_threshold", len(ids),
		"loaded", len(photos))

	return photos, nil
}
