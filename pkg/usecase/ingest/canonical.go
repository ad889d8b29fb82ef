package ingest

import (
	"bytes"
	"image"
	"image/png"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage indicates the payload could not be decoded as an image.
var ErrUnsupportedImage = goerr.New("unsupported image format")

// canonicalSize is the fixed square resolution used for embedding generation.
// The canonical form is never persisted; only the original payload is stored.
const canonicalSize = 512

// DetectFileType sniffs the image format from magic numbers. Unknown payloads
// default to jpg.
func DetectFileType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return "jpg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "gif"
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	default:
		return "jpg"
	}
}

// Canonicalize resizes the image to a fixed 512x512 square, ignoring the
// source aspect ratio, and re-encodes it as PNG. Stretching instead of
// cropping keeps the whole frame visible to the embedding model.
func Canonicalize(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(ErrUnsupportedImage, "failed to decode image", goerr.V("cause", err.Error()))
	}

	dst := image.NewRGBA(image.Rect(0, 0, canonicalSize, canonicalSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, goerr.Wrap(err, "failed to encode canonical image", goerr.V("source_format", format))
	}
	return buf.Bytes(), nil
}
