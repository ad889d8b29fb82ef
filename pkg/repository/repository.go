package repository

import (
	"context"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// ErrPersistence marks record store failures, fatal to the operation in
// progress.
var ErrPersistence = goerr.New("record store failure")

// Repository is the durable store of photo records. It owns the Photo and
// assigns its surrogate key on create.
type Repository interface {
	// Create persists a new photo and returns its assigned ID.
	Create(ctx context.Context, photo *model.Photo) (model.PhotoID, error)

	// GetByIDs retrieves photos by ID set. Missing IDs are omitted, not an
	// error. Result order follows the store's own order.
	GetByIDs(ctx context.Context, ids []model.PhotoID) ([]*model.Photo, error)

	// List retrieves photos ordered by ID for pagination.
	List(ctx context.Context, offset, limit int) ([]*model.Photo, error)

	// Count returns the number of stored photos.
	Count(ctx context.Context) (int64, error)

	// UpdateLocation corrects the location string of an existing photo.
	UpdateLocation(ctx context.Context, id model.PhotoID, location string) error

	// DeleteAll removes every photo record and returns the deleted count.
	DeleteAll(ctx context.Context) (int64, error)
}
