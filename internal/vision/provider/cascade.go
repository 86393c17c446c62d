//go:build gocv
// +build gocv

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FaceVision/internal/entity"
	"gocv.io/x/gocv"
)

// Cascade finds faces with an OpenCV Haar cascade. It reports boxes only.
type Cascade struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

func NewCascade(file string) (*Cascade, error) {
	if file == "" {
		return nil, errors.New("cascade file is required")
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(file) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file %s", file)
	}

	return &Cascade{classifier: classifier}, nil
}

func (c *Cascade) Name() string {
	return NameCascade
}

func (c *Cascade) Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	c.mu.Lock()
	rects := c.classifier.DetectMultiScale(gray)
	c.mu.Unlock()

	detections := make([]entity.Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, entity.Detection{
			Box: entity.Box{
				X:      float64(r.Min.X),
				Y:      float64(r.Min.Y),
				Width:  float64(r.Dx()),
				Height: float64(r.Dy()),
			},
			ImageSize: frame.Size(),
		})
	}

	return detections, ctx.Err()
}

func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.classifier.Close()
}
