//go:build !gocv
// +build !gocv

package capture

import (
	"context"
	"fmt"

	"FaceVision/internal/entity"
)

// Device is unavailable without OpenCV.
type Device struct {
	id     int
	width  int
	height int
}

func NewDevice(id, width, height int) *Device {
	return &Device{id: id, width: width, height: height}
}

func (d *Device) Start(_ context.Context) error {
	return fmt.Errorf("%w: gocv build tag is not enabled", ErrDeviceUnavailable)
}

func (d *Device) Frame() (entity.Frame, bool) {
	return entity.Frame{}, false
}

func (d *Device) Stop() error {
	return nil
}
