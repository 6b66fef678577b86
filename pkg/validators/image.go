// Package validators checks user supplied input before it reaches the
// analysis pipeline
package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrImageTooLarge        = errors.New("image too large")
	ErrImageTypeUnsupported = errors.New("unsupported image type, use JPEG, PNG, GIF, WebP or BMP")
	ErrNoImage              = errors.New("no image provided")
)

var supportedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
}

// ImageValidator checks an uploaded meal photo and returns its bytes.
// The declared Content-Type is only a fast reject, the real decision is
// made by sniffing the payload
func ImageValidator(fh *multipart.FileHeader) (int, []byte, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoImage
	}

	// Check headers first which is easy to spoof, but faster for legit clients
	ct := fh.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return http.StatusBadRequest, nil, ErrImageTypeUnsupported
	}

	maxSize := viper.GetInt64("upload.max_size")
	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if int64(len(data)) > maxSize {
		return http.StatusRequestEntityTooLarge, nil, ErrImageTooLarge
	}

	if len(data) == 0 {
		return http.StatusBadRequest, nil, ErrNoImage
	}

	return ValidateImageBytes(data)
}

// ValidateImageBytes sniffs the payload and accepts only real image
// data. Used directly for images fetched from a URL instead of uploaded
func ValidateImageBytes(data []byte) (int, []byte, error) {
	mime := mimetype.Detect(data)

	for _, t := range supportedImageTypes {
		if mime.Is(t) {
			return 0, data, nil
		}
	}

	return http.StatusBadRequest, nil, ErrImageTypeUnsupported
}
