package ingest

import (
	"context"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SetLocation corrects a photo's location string and replaces its caption
// vector so searches see the new location. The record update commits first;
// a caption embedding failure leaves the record updated and returns an
// ErrEmbedding error.
func (p *Pipeline) SetLocation(ctx context.Context, id model.PhotoID, location string) error {
	if location == "" {
		return goerr.Wrap(ErrInvalidInput, "location is empty", goerr.V("photo_id", id))
	}

	if err := p.repo.UpdateLocation(ctx, id, location); err != nil {
		return err
	}

	vec, err := p.embedder.EmbedText(ctx, location)
	if err != nil {
		return goerr.Wrap(ErrEmbedding, "caption embedding failed",
			goerr.V("photo_id", id), goerr.V("cause", err.Error()))
	}
	// Unconditional upsert: the old caption vector must be replaced, not
	// kept the way Embed keeps existing entries.
	if err := p.index.Upsert(ctx, model.NamespaceLocationCaptions, id.String(), vec); err != nil {
		return goerr.Wrap(ErrEmbedding, "caption upsert failed",
			goerr.V("photo_id", id), goerr.V("cause", err.Error()))
	}

	logging.From(ctx).Info("photo location updated", "photo_id", id, "location", location)
	return nil
}
