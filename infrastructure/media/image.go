// Package media turns local image files into the data URLs the chat
// service stores for avatars and attachments.
package media

import (
	"chatty/domain/mimetypes"
	"chatty/errors"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize bounds what is read into memory before encoding.
const MaxImageSize = 10 << 20

// EncodeImage reads the file at path and returns it as a base64 data URL.
// The type is sniffed from content, never from the extension.
func EncodeImage(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImageSize {
		return "", fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), MaxImageSize)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return EncodeImageBytes(raw)
}

func EncodeImageBytes(raw []byte) (string, error) {
	detected := mimetype.Detect(raw)
	m, ok := mimetypes.ToImage(detected.String())
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedMediaType, detected.String())
	}
	return mimetypes.DataURL(m, raw), nil
}
