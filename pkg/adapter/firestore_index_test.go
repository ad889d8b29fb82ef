package adapter_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/gt"
)

func setupIndex(t *testing.T) *adapter.FirestoreIndex {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	index, err := adapter.NewFirestoreIndex(context.Background(), projectID, databaseID,
		adapter.WithRootCollection(fmt.Sprintf("vector-index-test-%d", rand.Int63())))
	gt.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		gt.NoError(t, index.DeleteAll(ctx, model.NamespacePhotos))
		gt.NoError(t, index.Close())
	})

	return index
}

func randomVector() []float32 {
	vec := make([]float32, model.VectorDimension)
	for i := range vec {
		vec[i] = rand.Float32()
	}
	return vec
}

func TestFirestoreIndexUpsertAndExists(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	exists := gt.R1(index.Exists(ctx, model.NamespacePhotos, "1")).NoError(t)
	gt.False(t, exists)

	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "1", randomVector()))

	exists = gt.R1(index.Exists(ctx, model.NamespacePhotos, "1")).NoError(t)
	gt.True(t, exists)
}

func TestFirestoreIndexQuery(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	target := randomVector()
	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "10", target))
	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "11", randomVector()))

	matches := gt.R1(index.Query(ctx, model.NamespacePhotos, target, 2)).NoError(t)
	gt.A(t, matches).Longer(0)
	gt.Equal(t, matches[0].ID, "10")
	gt.True(t, matches[0].Score > 0.99)
}

func TestFirestoreIndexNamespaceIsolation(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "42", randomVector()))

	exists := gt.R1(index.Exists(ctx, model.NamespaceLocationCaptions, "42")).NoError(t)
	gt.False(t, exists)
}

func TestFirestoreIndexDeleteAll(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "1", randomVector()))
	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "2", randomVector()))

	gt.NoError(t, index.DeleteAll(ctx, model.NamespacePhotos))

	count := gt.R1(index.Count(ctx, model.NamespacePhotos)).NoError(t)
	gt.Equal(t, count, int64(0))

	// Deleting an already-empty namespace is a no-op.
	gt.NoError(t, index.DeleteAll(ctx, model.NamespacePhotos))
}

func TestFirestoreIndexCount(t *testing.T) {
	index := setupIndex(t)
	ctx := context.Background()

	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "1", randomVector()))
	gt.NoError(t, index.Upsert(ctx, model.NamespacePhotos, "2", randomVector()))

	count := gt.R1(index.Count(ctx, model.NamespacePhotos)).NoError(t)
	gt.Equal(t, count, int64(2))
}
