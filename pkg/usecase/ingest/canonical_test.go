package ingest_test

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/abhivel/lyfe/pkg/usecase/ingest"
	"github.com/m-mizutani/gt"
)

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, "jpg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif", []byte("GIF89a"), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "webp"},
		{"bmp", []byte{'B', 'M', 0x00, 0x00}, "bmp"},
		{"unknown defaults to jpg", []byte{0x00, 0x01, 0x02, 0x03}, "jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, ingest.DetectFileType(tc.data), tc.want)
		})
	}
}

func TestCanonicalize(t *testing.T) {
	out := gt.R1(ingest.Canonicalize(testPNG(t))).NoError(t)

	img := gt.R1(png.Decode(bytes.NewReader(out))).NoError(t)
	bounds := img.Bounds()
	gt.Equal(t, bounds.Dx(), 512)
	gt.Equal(t, bounds.Dy(), 512)
}

func TestCanonicalizeRejectsGarbage(t *testing.T) {
	_, err := ingest.Canonicalize([]byte("not an image at all"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ingest.ErrUnsupportedImage))
}
