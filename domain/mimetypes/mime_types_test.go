package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"PNG", "image/png", ImagePNG, true},
		{"JPEG", "image/jpeg", ImageJPEG, true},
		{"GIF", "image/gif", ImageGIF, true},
		{"SVG with charset", "image/svg+xml; charset=utf-8", ImageSVG, true},

		// Fallback / mismatch
		{"Mismatch", "image/png", ImageJPEG, false},
		{"Text is not an image", "text/plain; charset=utf-8", ImagePNG, false},
		{"Invalid MIME", "not a mime", ImagePNG, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestToImage(t *testing.T) {
	req := require.New(t)

	m, ok := ToImage("image/webp")
	req.True(ok)
	req.Equal(ImageWEBP, m)

	m, ok = ToImage("application/pdf")
	req.False(ok)
	req.Equal(Unknown, m)
}

func TestDataURL(t *testing.T) {
	req := require.New(t)

	// "hi" in base64 is aGk=
	req.Equal("data:image/png;base64,aGk=", DataURL(ImagePNG, []byte("hi")))
}
