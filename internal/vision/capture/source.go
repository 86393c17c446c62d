// Package capture turns camera streams and uploaded images into frames.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"FaceVision/internal/entity"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrSourceClosed      = errors.New("capture source closed")
	ErrSourceBusy        = errors.New("capture source already in use")
	ErrNoImage           = errors.New("no image loaded")
	ErrUnsupportedImage  = errors.New("unsupported image format")
)

// Source produces frames on demand. Camera sources can be started once and
// fail with ErrSourceBusy while another loop holds them. Stop releases
// whatever the source holds and may be called any number of times.
type Source interface {
	Start(ctx context.Context) error
	Frame() (entity.Frame, bool)
	Stop() error
}

var supportedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Decode reads one encoded JPEG or PNG image and applies its EXIF orientation.
func Decode(r io.Reader) (image.Image, []byte, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil, "", ErrNoImage
	}

	mimeType := mimetype.Detect(data).String()
	if !supportedMimeTypes[mimeType] {
		return nil, nil, "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, "", fmt.Errorf("decode image: %w", err)
	}

	return img, data, mimeType, nil
}
