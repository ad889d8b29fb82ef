package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Archive stores photo payloads outside the record store, used to keep a copy
// of originals before destructive operations.
type Archive interface {
	// Put writes a photo payload under a key derived from its ID.
	Put(ctx context.Context, photo *model.Photo) error
}

type storageArchive struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewArchive creates a Cloud Storage backed archive.
func NewArchive(ctx context.Context, bucketName string) (Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageArchive{
		bucketName: bucketName,
		prefix:     "photos",
		client:     client,
	}, nil
}

func (s *storageArchive) Put(ctx context.Context, photo *model.Photo) error {
	key := fmt.Sprintf("%s/%s.%s", s.prefix, photo.ID, photo.FileType)

	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = photo.MIMEType()

	if _, err := io.Copy(w, bytes.NewReader(photo.Data)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write photo to archive", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object", goerr.V("key", key))
	}
	return nil
}
