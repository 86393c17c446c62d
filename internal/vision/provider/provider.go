// Package provider adapts face detection backends to a single capability:
// given a frame, return the faces found in it.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"FaceVision/internal/entity"
	"FaceVision/pkg/gemini"
	websocketPkg "FaceVision/pkg/websocket"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const (
	NameNone    = "none"
	NameRemote  = "remote"
	NameGemini  = "gemini"
	NameCascade = "cascade"
)

var (
	ErrUnknownProvider = errors.New("unknown detection provider")
	ErrEmptyFrame      = errors.New("empty frame")
)

type Provider interface {
	Name() string
	Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error)
}

// Close releases the provider's connections or models, when it holds any.
func Close(p Provider) error {
	if c, ok := p.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

type Config struct {
	Name         string
	InferenceURL string
	GeminiAPIKey string
	GeminiModel  string
	CascadeFile  string
	MaxWidth     int
}

// New builds the provider named in cfg.
func New(ctx context.Context, cfg Config, log *logrus.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))

	switch name {
	case "", NameNone:
		log.Info("No detection provider configured, analyses will report zero faces")
		return Noop{}, nil
	case NameRemote:
		log.Infof("Using remote inference service at %s", cfg.InferenceURL)
		client := websocketPkg.NewInferenceClient(cfg.InferenceURL, log)
		return NewRemote(client, cfg.MaxWidth, log), nil
	case NameGemini:
		client, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		log.Infof("Using Gemini detection provider")
		return NewGemini(client, log), nil
	case NameCascade:
		p, err := NewCascade(cfg.CascadeFile)
		if err != nil {
			return nil, err
		}
		log.Infof("Using OpenCV cascade detection provider with %s", cfg.CascadeFile)
		return p, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Name)
}

// Noop reports no faces for every frame.
type Noop struct{}

func (Noop) Name() string {
	return NameNone
}

func (Noop) Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []entity.Detection{}, nil
}

// encodeFrame returns a JPEG or PNG encoding of the frame, downscaled so its
// width does not exceed maxWidth. The returned size is the coordinate space
// of the encoded image.
func encodeFrame(frame entity.Frame, maxWidth int) ([]byte, string, entity.Size, error) {
	if frame.Empty() {
		return nil, "", entity.Size{}, ErrEmptyFrame
	}

	if len(frame.Data) > 0 && (maxWidth <= 0 || frame.Width <= maxWidth) {
		mimeType := frame.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		return frame.Data, mimeType, frame.Size(), nil
	}

	img := frame.Image
	if maxWidth > 0 && frame.Width > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", entity.Size{}, fmt.Errorf("encode frame: %w", err)
	}

	b := img.Bounds()
	return buf.Bytes(), "image/jpeg", entity.Size{Width: b.Dx(), Height: b.Dy()}, nil
}
