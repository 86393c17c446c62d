package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"FaceVision/internal/entity"
)

// Static serves a single uploaded image. The frame stays available until
// another image is loaded.
type Static struct {
	mu     sync.RWMutex
	frame  entity.Frame
	loaded bool
	seq    uint64
}

func NewStatic() *Static {
	return &Static{}
}

// Load decodes r and replaces the current frame.
func (s *Static) Load(r io.Reader) error {
	img, data, mimeType, err := Decode(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	frame := entity.NewFrame(img, s.seq, time.Now())
	frame.Data = data
	frame.MimeType = mimeType

	s.frame = frame
	s.loaded = true
	return nil
}

func (s *Static) Start(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return ErrNoImage
	}
	return nil
}

func (s *Static) Frame() (entity.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frame, s.loaded
}

// Stop is a no-op: a static image holds no device.
func (s *Static) Stop() error {
	return nil
}
