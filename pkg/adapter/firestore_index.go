package adapter

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const distanceField = "distance"

// FirestoreIndex implements VectorIndex using Firestore vector search. Each
// namespace is a subcollection under a root collection, one document per
// vector ID.
type FirestoreIndex struct {
	client *firestore.Client
	root   string
}

type FirestoreIndexOption func(*FirestoreIndex)

// WithRootCollection overrides the root collection name.
func WithRootCollection(name string) FirestoreIndexOption {
	return func(f *FirestoreIndex) {
		f.root = name
	}
}

func NewFirestoreIndex(ctx context.Context, projectID, databaseID string, opts ...FirestoreIndexOption) (*FirestoreIndex, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	f := &FirestoreIndex{
		client: client,
		root:   "vector-index",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FirestoreIndex) Close() error {
	return f.client.Close()
}

func (f *FirestoreIndex) entries(namespace string) *firestore.CollectionRef {
	return f.client.Collection(f.root).Doc(namespace).Collection("entries")
}

// Upsert is idempotent: re-writing the same ID replaces the stored vector.
func (f *FirestoreIndex) Upsert(ctx context.Context, namespace, id string, vector []float32) error {
	_, err := f.entries(namespace).Doc(id).Set(ctx, map[string]any{
		"embedding":  firestore.Vector32(vector),
		"updated_at": firestore.ServerTimestamp,
	})
	if err != nil {
		return goerr.Wrap(ErrIndexUnavailable, "failed to upsert vector",
			goerr.V("namespace", namespace), goerr.V("id", id), goerr.V("cause", err.Error()))
	}
	return nil
}

func (f *FirestoreIndex) Exists(ctx context.Context, namespace, id string) (bool, error) {
	_, err := f.entries(namespace).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(ErrIndexUnavailable, "failed to check vector existence",
			goerr.V("namespace", namespace), goerr.V("id", id), goerr.V("cause", err.Error()))
	}
	return true, nil
}

// Query returns the topK nearest entries by cosine similarity, best first.
func (f *FirestoreIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]VectorMatch, error) {
	vq := f.entries(namespace).FindNearest(
		"embedding",
		firestore.Vector32(vector),
		topK,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	var matches []VectorMatch
	iter := vq.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(ErrIndexUnavailable, "vector query failed",
				goerr.V("namespace", namespace), goerr.V("cause", err.Error()))
		}

		distance, _ := snap.Data()[distanceField].(float64)
		matches = append(matches, VectorMatch{
			ID:    snap.Ref.ID,
			Score: cosineScore(distance),
		})
	}
	return matches, nil
}

// cosineScore converts a cosine distance into a similarity score in [0, 1].
func cosineScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// DeleteAll removes every entry in the namespace. Any delete that the bulk
// writer could not commit fails the whole call.
func (f *FirestoreIndex) DeleteAll(ctx context.Context, namespace string) error {
	bw := f.client.BulkWriter(ctx)

	var jobs []*firestore.BulkWriterJob
	iter := f.entries(namespace).DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(ErrIndexUnavailable, "failed to list vectors for deletion",
				goerr.V("namespace", namespace), goerr.V("cause", err.Error()))
		}
		job, err := bw.Delete(ref)
		if err != nil {
			return goerr.Wrap(ErrIndexUnavailable, "failed to schedule vector deletion",
				goerr.V("namespace", namespace), goerr.V("cause", err.Error()))
		}
		jobs = append(jobs, job)
	}

	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(ErrIndexUnavailable, "vector deletion was not committed",
				goerr.V("namespace", namespace), goerr.V("cause", err.Error()))
		}
	}
	return nil
}

func (f *FirestoreIndex) Count(ctx context.Context, namespace string) (int64, error) {
	aq := f.entries(namespace).Query.NewAggregationQuery().WithCount("all")
	result, err := aq.Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(ErrIndexUnavailable, "failed to count vectors",
			goerr.V("namespace", namespace), goerr.V("cause", err.Error()))
	}

	value, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.Wrap(ErrIndexUnavailable, "unexpected aggregation result type",
			goerr.V("namespace", namespace))
	}
	return value.GetIntegerValue(), nil
}
