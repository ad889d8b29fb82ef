package ingest

import (
	"context"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/utils/logging"
)

// PurgeResult reports per-store outcomes of a purge. Any field may carry an
// error while the others succeeded.
type PurgeResult struct {
	PhotosErr      error
	CaptionsErr    error
	RecordsErr     error
	RecordsDeleted int64
}

// Complete reports whether every store was cleared.
func (r *PurgeResult) Complete() bool {
	return r.PhotosErr == nil && r.CaptionsErr == nil && r.RecordsErr == nil
}

// PurgeAll deletes every vector and record. Vectors go first so a partial
// failure never leaves vectors pointing at deleted records; each store is
// attempted regardless of the others.
func (p *Pipeline) PurgeAll(ctx context.Context) *PurgeResult {
	result := &PurgeResult{}

	if err := p.index.DeleteAll(ctx, model.NamespacePhotos); err != nil {
		result.PhotosErr = err
		logging.From(ctx).Warn("failed to clear photo vectors", "error", err)
	}
	if err := p.index.DeleteAll(ctx, model.NamespaceLocationCaptions); err != nil {
		result.CaptionsErr = err
		logging.From(ctx).Warn("failed to clear caption vectors", "error", err)
	}

	deleted, err := p.repo.DeleteAll(ctx)
	if err != nil {
		result.RecordsErr = err
		logging.From(ctx).Warn("failed to clear photo records", "error", err)
	}
	result.RecordsDeleted = deleted

	logging.From(ctx).Info("purge finished",
		"records_deleted", result.RecordsDeleted,
		"complete", result.Complete())

	return result
}
