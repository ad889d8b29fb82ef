package model

import (
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// PhotoID is the repository-assigned surrogate key of a photo. Rendered as a
// string, it is also the vector index entry ID: the only join key between the
// record store and the index.
type PhotoID int64

func (id PhotoID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParsePhotoID parses a vector index entry ID back into a PhotoID.
func ParsePhotoID(s string) (PhotoID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid photo ID", goerr.V("id", s))
	}
	return PhotoID(v), nil
}

// Vector index namespaces used by the core.
const (
	NamespacePhotos           = "photos"
	NamespaceLocationCaptions = "location-captions"
)

// VectorDimension is the fixed embedding length for both image and text vectors.
const VectorDimension = 512

// Photo is a stored photo record. Data holds the original payload as uploaded;
// the 512x512 canonical form used for embedding is never persisted.
type Photo struct {
	ID         PhotoID
	Data       []byte
	FileType   string
	Location   string
	CapturedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MIMEType returns the media type of the stored payload.
func (p *Photo) MIMEType() string {
	switch p.FileType {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
