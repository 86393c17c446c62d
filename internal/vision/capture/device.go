//go:build gocv
// +build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"FaceVision/internal/entity"
	"gocv.io/x/gocv"
)

var errEmptyRead = errors.New("camera returned no frame")

// Device reads frames from a local camera through OpenCV.
type Device struct {
	id     int
	width  int
	height int

	feed feed
}

func NewDevice(id, width, height int) *Device {
	return &Device{id: id, width: width, height: height}
}

func (d *Device) Start(_ context.Context) error {
	return d.feed.start(d.open)
}

func (d *Device) open() (frameReader, error) {
	capture, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d is not opened", ErrDeviceUnavailable, d.id)
	}

	if d.width > 0 && d.height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}

	return &cvReader{capture: capture, mat: gocv.NewMat()}, nil
}

// Frame returns the latest frame read from the camera, once.
func (d *Device) Frame() (entity.Frame, bool) {
	return d.feed.frame()
}

// Stop turns the camera off without waiting for a read in progress.
func (d *Device) Stop() error {
	d.feed.stop()
	return nil
}

type cvReader struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func (r *cvReader) Read() (image.Image, error) {
	if ok := r.capture.Read(&r.mat); !ok || r.mat.Empty() {
		return nil, errEmptyRead
	}
	return r.mat.ToImage()
}

func (r *cvReader) Close() error {
	err := r.capture.Close()
	r.mat.Close()
	return err
}
