package mimetypes

import (
	"encoding/base64"
	"mime"
	"strings"
)

type MIME string

const (
	Unknown MIME = "unknown"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
	ImageSVG  MIME = "image/svg+xml"
)

// Images lists the types accepted as avatars and message attachments.
var Images = []MIME{ImagePNG, ImageJPEG, ImageGIF, ImageWEBP, ImageSVG}

// Matches reports whether a detected media type (parameters allowed)
// designates the expected one.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// ToImage returns the accepted image type matching detected, or Unknown.
func ToImage(detected string) (MIME, bool) {
	for _, img := range Images {
		if m, ok := Matches(detected, img); ok {
			return m, true
		}
	}
	return Unknown, false
}

// DataURL encodes raw bytes as a base64 data URL of the given type.
func DataURL(m MIME, raw []byte) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(string(m))
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(raw))
	return b.String()
}
