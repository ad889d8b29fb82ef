package ingest

import (
	"context"
	"time"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/repository"
	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidInput marks inputs rejected before any side effect.
	ErrInvalidInput = goerr.New("invalid ingest input")

	// ErrEmbedding marks the partial-failure case: the photo record is
	// committed but its vector could not be generated or stored. A later
	// Repair pass picks these up.
	ErrEmbedding = goerr.New("embedding generation failed")
)

// Pipeline turns raw photo payloads into persisted records with index
// vectors. The record store commit always happens first; the vector side is
// best-effort and idempotent.
type Pipeline struct {
	repo     repository.Repository
	index    adapter.VectorIndex
	embedder adapter.Embedder

	batchConcurrency int
}

type Option func(*Pipeline)

// WithBatchConcurrency bounds how many batch items run in parallel.
func WithBatchConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchConcurrency = n
		}
	}
}

func New(repo repository.Repository, index adapter.VectorIndex, embedder adapter.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:             repo,
		index:            index,
		embedder:         embedder,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Input is a single photo to ingest.
type Input struct {
	Data       []byte
	Location   string
	CapturedAt *time.Time
}

// Ingest persists the photo and then embeds it. On embedding or index
// failure the created photo is returned together with an ErrEmbedding error:
// the record stays committed and eligible for repair.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (*model.Photo, error) {
	if len(in.Data) == 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "photo data is empty")
	}

	photo := &model.Photo{
		Data:       in.Data,
		FileType:   DetectFileType(in.Data),
		Location:   in.Location,
		CapturedAt: in.CapturedAt,
	}

	// Record first: the index join key is the repository-assigned ID, so the
	// vector cannot be written before the record exists.
	if _, err := p.repo.Create(ctx, photo); err != nil {
		return nil, err
	}

	if _, err := p.Embed(ctx, photo); err != nil {
		logging.From(ctx).Warn("photo persisted without vector",
			"photo_id", photo.ID, "error", err)
		return photo, err
	}
	return photo, nil
}

// Embed ensures the index holds vectors for an already-persisted photo.
// Existing vectors are left alone, making the operation idempotent and safe
// to redo. Returns whether anything was written.
func (p *Pipeline) Embed(ctx context.Context, photo *model.Photo) (bool, error) {
	id := photo.ID.String()
	updated := false

	exists, err := p.index.Exists(ctx, model.NamespacePhotos, id)
	if err != nil {
		return false, goerr.Wrap(ErrEmbedding, "existence check failed",
			goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
	}
	if !exists {
		canonical, err := Canonicalize(photo.Data)
		if err != nil {
			return false, goerr.Wrap(ErrEmbedding, "canonicalization failed",
				goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
		}
		vec, err := p.embedder.EmbedImage(ctx, canonical, "image/png")
		if err != nil {
			return false, goerr.Wrap(ErrEmbedding, "image embedding failed",
				goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
		}
		if err := p.index.Upsert(ctx, model.NamespacePhotos, id, vec); err != nil {
			return false, goerr.Wrap(ErrEmbedding, "vector upsert failed",
				goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
		}
		updated = true
	}

	if photo.Location != "" {
		wrote, err := p.embedCaption(ctx, photo)
		if err != nil {
			return updated, err
		}
		updated = updated || wrote
	}

	return updated, nil
}

// embedCaption indexes the location string as a text caption under the same
// join key in the caption namespace.
func (p *Pipeline) embedCaption(ctx context.Context, photo *model.Photo) (bool, error) {
	id := photo.ID.String()

	exists, err := p.index.Exists(ctx, model.NamespaceLocationCaptions, id)
	if err != nil {
		return false, goerr.Wrap(ErrEmbedding, "caption existence check failed",
			goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
	}
	if exists {
		return false, nil
	}

	vec, err := p.embedder.EmbedText(ctx, photo.Location)
	if err != nil {
		return false, goerr.Wrap(ErrEmbedding, "caption embedding failed",
			goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
	}
	if err := p.index.Upsert(ctx, model.NamespaceLocationCaptions, id, vec); err != nil {
		return false, goerr.Wrap(ErrEmbedding, "caption upsert failed",
			goerr.V("photo_id", photo.ID), goerr.V("cause", err.Error()))
	}
	return true, nil
}

// ItemStatus is the per-item outcome of a batch ingest.
type ItemStatus string

const (
	StatusCreated        ItemStatus = "created"
	StatusEmbeddingError ItemStatus = "embedding_error"
	StatusFailed         ItemStatus = "failed"
)

// ItemResult is the outcome of one batch item. Photo is set for both created
// and embedding_error outcomes.
type ItemResult struct {
	Index  int
	Photo  *model.Photo
	Status ItemStatus
	Err    error
}

// BatchResult enumerates per-item outcomes; one item's failure never aborts
// its siblings.
type BatchResult struct {
	BatchID string
	Items   []ItemResult
}

// CountByStatus returns how many items ended in the given status.
func (r *BatchResult) CountByStatus(status ItemStatus) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// IngestBatch processes each input independently with bounded parallelism.
func (p *Pipeline) IngestBatch(ctx context.Context, inputs []Input) *BatchResult {
	result := &BatchResult{
		BatchID: uuid.New().String(),
		Items:   make([]ItemResult, len(inputs)),
	}

	var g errgroup.Group
	g.SetLimit(p.batchConcurrency)

	for i, in := range inputs {
		g.Go(func() error {
			photo, err := p.Ingest(ctx, in)
			item := ItemResult{Index: i, Photo: photo, Err: err}
			switch {
			case err == nil:
				item.Status = StatusCreated
			case photo != nil:
				item.Status = StatusEmbeddingError
			default:
				item.Status = StatusFailed
			}
			result.Items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	logging.From(ctx).Info("batch ingest finished",
		"batch_id", result.BatchID,
		"total", len(inputs),
		"created", result.CountByStatus(StatusCreated),
		"embedding_errors", result.CountByStatus(StatusEmbeddingError),
		"failed", result.CountByStatus(StatusFailed))

	return result
}
