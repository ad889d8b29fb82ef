package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/usecase/ingest"
	"github.com/m-mizutani/gt"
)

type mockRepo struct {
	mu        sync.Mutex
	photos    map[model.PhotoID]*model.Photo
	nextID    model.PhotoID
	createErr error
	deleteErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{photos: map[model.PhotoID]*model.Photo{}, nextID: 1}
}

func (m *mockRepo) Create(ctx context.Context, photo *model.Photo) (model.PhotoID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	photo.ID = m.nextID
	m.nextID++
	m.photos[photo.ID] = photo
	return photo.ID, nil
}

func (m *mockRepo) GetByIDs(ctx context.Context, ids []model.PhotoID) ([]*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Photo
	for _, id := range ids {
		if p, ok := m.photos[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) List(ctx context.Context, offset, limit int) ([]*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.Photo
	for id := model.PhotoID(1); id < m.nextID; id++ {
		if p, ok := m.photos[id]; ok {
			all = append(all, p)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockRepo) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.photos)), nil
}

func (m *mockRepo) UpdateLocation(ctx context.Context, id model.PhotoID, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return errors.New("not found")
	}
	p.Location = location
	return nil
}

func (m *mockRepo) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	n := int64(len(m.photos))
	m.photos = map[model.PhotoID]*model.Photo{}
	return n, nil
}

type mockIndex struct {
	mu        sync.Mutex
	vectors   map[string]map[string][]float32
	upserts   int
	upsertErr error
	deleteErr map[string]error
}

func newMockIndex() *mockIndex {
	return &mockIndex{
		vectors:   map[string]map[string][]float32{},
		deleteErr: map[string]error{},
	}
}

func (m *mockIndex) Upsert(ctx context.Context, namespace, id string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.vectors[namespace] == nil {
		m.vectors[namespace] = map[string][]float32{}
	}
	m.vectors[namespace][id] = vector
	m.upserts++
	return nil
}

func (m *mockIndex) Exists(ctx context.Context, namespace, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vectors[namespace][id]
	return ok, nil
}

func (m *mockIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]adapter.VectorMatch, error) {
	return nil, nil
}

func (m *mockIndex) DeleteAll(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[namespace]; err != nil {
		return err
	}
	delete(m.vectors, namespace)
	return nil
}

func (m *mockIndex) Count(ctx context.Context, namespace string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.vectors[namespace])), nil
}

type mockEmbedder struct {
	mu       sync.Mutex
	imageErr error
	textErr  error
	calls    int
}

func (m *mockEmbedder) EmbedImage(ctx context.Context, data []byte, mimeType string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	return make([]float32, model.VectorDimension), nil
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.textErr != nil {
		return nil, m.textErr
	}
	return make([]float32, model.VectorDimension), nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{}
	pipeline := ingest.New(repo, index, embedder)

	photo := gt.R1(pipeline.Ingest(ctx, ingest.Input{
		Data:     testPNG(t),
		Location: "Lisbon, Portugal",
	})).NoError(t)

	gt.Equal(t, photo.ID, model.PhotoID(1))
	gt.Equal(t, photo.FileType, "png")

	exists := gt.R1(index.Exists(ctx, model.NamespacePhotos, "1")).NoError(t)
	gt.True(t, exists)
	exists = gt.R1(index.Exists(ctx, model.NamespaceLocationCaptions, "1")).NoError(t)
	gt.True(t, exists)
}

func TestIngestEmptyData(t *testing.T) {
	pipeline := ingest.New(newMockRepo(), newMockIndex(), &mockEmbedder{})
	_, err := pipeline.Ingest(context.Background(), ingest.Input{})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ingest.ErrInvalidInput))
}

func TestIngestEmbeddingFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{imageErr: errors.New("backend down")}
	pipeline := ingest.New(repo, index, embedder)

	photo, err := pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t)})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ingest.ErrEmbedding))
	gt.V(t, photo).NotNil()

	// The record outlives the embedding failure.
	count := gt.R1(repo.Count(ctx)).NoError(t)
	gt.Equal(t, count, int64(1))
	exists := gt.R1(index.Exists(ctx, model.NamespacePhotos, photo.ID.String())).NoError(t)
	gt.False(t, exists)
}

func TestEmbedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{}
	pipeline := ingest.New(repo, index, embedder)

	photo := gt.R1(pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t)})).NoError(t)
	gt.Equal(t, index.upserts, 1)

	updated := gt.R1(pipeline.Embed(ctx, photo)).NoError(t)
	gt.False(t, updated)
	gt.Equal(t, index.upserts, 1)
	gt.Equal(t, embedder.calls, 1)
}

func TestIngestBatchIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{}
	pipeline := ingest.New(repo, index, embedder, ingest.WithBatchConcurrency(1))

	inputs := []ingest.Input{
		{Data: testPNG(t)},
		{}, // rejected before any side effect
		{Data: testPNG(t)},
	}
	result := pipeline.IngestBatch(ctx, inputs)

	gt.A(t, result.Items).Length(3)
	gt.Equal(t, result.CountByStatus(ingest.StatusCreated), 2)
	gt.Equal(t, result.CountByStatus(ingest.StatusFailed), 1)
	gt.Equal(t, result.Items[1].Status, ingest.StatusFailed)
	gt.Error(t, result.Items[1].Err)

	count := gt.R1(repo.Count(ctx)).NoError(t)
	gt.Equal(t, count, int64(2))
}

func TestIngestBatchEmbeddingError(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{imageErr: errors.New("quota exceeded")}
	pipeline := ingest.New(repo, index, embedder)

	result := pipeline.IngestBatch(ctx, []ingest.Input{{Data: testPNG(t)}})

	gt.Equal(t, result.CountByStatus(ingest.StatusEmbeddingError), 1)
	gt.V(t, result.Items[0].Photo).NotNil()
}

func TestSetLocation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{}
	pipeline := ingest.New(repo, index, embedder)

	photo := gt.R1(pipeline.Ingest(ctx, ingest.Input{
		Data:     testPNG(t),
		Location: "Lisbon, Portugal",
	})).NoError(t)
	before := index.vectors[model.NamespaceLocationCaptions][photo.ID.String()]

	// Mark the stored vector so the replacement is observable.
	before[0] = 42
	gt.NoError(t, pipeline.SetLocation(ctx, photo.ID, "Porto, Portugal"))

	stored := gt.R1(repo.GetByIDs(ctx, []model.PhotoID{photo.ID})).NoError(t)
	gt.Equal(t, stored[0].Location, "Porto, Portugal")

	after := index.vectors[model.NamespaceLocationCaptions][photo.ID.String()]
	gt.Equal(t, after[0], float32(0))
}

func TestSetLocationUnknownPhoto(t *testing.T) {
	pipeline := ingest.New(newMockRepo(), newMockIndex(), &mockEmbedder{})
	err := pipeline.SetLocation(context.Background(), 999, "Kyoto")
	gt.Error(t, err)
}

func TestSetLocationEmpty(t *testing.T) {
	pipeline := ingest.New(newMockRepo(), newMockIndex(), &mockEmbedder{})
	err := pipeline.SetLocation(context.Background(), 1, "")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ingest.ErrInvalidInput))
}

func TestSetLocationEmbeddingFailureKeepsRecordUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{}
	pipeline := ingest.New(repo, index, embedder)

	photo := gt.R1(pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t)})).NoError(t)

	embedder.mu.Lock()
	embedder.textErr = errors.New("backend down")
	embedder.mu.Unlock()

	err := pipeline.SetLocation(ctx, photo.ID, "Osaka, Japan")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ingest.ErrEmbedding))

	stored := gt.R1(repo.GetByIDs(ctx, []model.PhotoID{photo.ID})).NoError(t)
	gt.Equal(t, stored[0].Location, "Osaka, Japan")
}

func TestRepair(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	embedder := &mockEmbedder{imageErr: errors.New("backend down")}
	pipeline := ingest.New(repo, index, embedder)

	// Two photos persisted without vectors.
	_, err := pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t)})
	gt.Error(t, err)
	_, err = pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t)})
	gt.Error(t, err)

	embedder.mu.Lock()
	embedder.imageErr = nil
	embedder.mu.Unlock()

	result := gt.R1(pipeline.Repair(ctx)).NoError(t)
	gt.Equal(t, result.Scanned, 2)
	gt.Equal(t, result.Repaired, 2)
	gt.Equal(t, result.Failed, 0)

	count := gt.R1(index.Count(ctx, model.NamespacePhotos)).NoError(t)
	gt.Equal(t, count, int64(2))

	// A second pass has nothing to do.
	result = gt.R1(pipeline.Repair(ctx)).NoError(t)
	gt.Equal(t, result.Repaired, 0)
}

func TestPurgeAll(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	pipeline := ingest.New(repo, index, &mockEmbedder{})

	gt.R1(pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t), Location: "Kyoto"})).NoError(t)

	result := pipeline.PurgeAll(ctx)
	gt.True(t, result.Complete())
	gt.Equal(t, result.RecordsDeleted, int64(1))

	count := gt.R1(repo.Count(ctx)).NoError(t)
	gt.Equal(t, count, int64(0))
}

func TestPurgeAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	index := newMockIndex()
	index.deleteErr[model.NamespacePhotos] = errors.New("index unavailable")
	pipeline := ingest.New(repo, index, &mockEmbedder{})

	gt.R1(pipeline.Ingest(ctx, ingest.Input{Data: testPNG(t), Location: "Kyoto"})).NoError(t)

	result := pipeline.PurgeAll(ctx)
	gt.False(t, result.Complete())
	gt.Error(t, result.PhotosErr)
	gt.NoError(t, result.CaptionsErr)
	gt.NoError(t, result.RecordsErr)

	// Other stores are still cleared.
	gt.Equal(t, result.RecordsDeleted, int64(1))
	count := gt.R1(index.Count(ctx, model.NamespaceLocationCaptions)).NoError(t)
	gt.Equal(t, count, int64(0))
}
