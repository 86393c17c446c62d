//go:build !gocv
// +build !gocv

package provider

import (
	"context"
	"errors"

	"FaceVision/internal/entity"
)

var errNoOpenCV = errors.New("gocv build tag is not enabled")

type Cascade struct{}

func NewCascade(_ string) (*Cascade, error) {
	return nil, errNoOpenCV
}

func (c *Cascade) Name() string {
	return NameCascade
}

func (c *Cascade) Detect(_ context.Context, _ entity.Frame) ([]entity.Detection, error) {
	return nil, errNoOpenCV
}

func (c *Cascade) Close() error {
	return nil
}
