package capture

import (
	"bytes"
	"context"
	"sync"
	"time"

	"FaceVision/internal/entity"
)

type streamState int

const (
	streamIdle streamState = iota
	streamActive
	streamClosed
)

// Stream is a camera source fed by encoded frames pushed from a remote
// camera, usually a browser over a websocket. Only the latest frame is kept
// and each frame is handed out once.
type Stream struct {
	mu     sync.Mutex
	state  streamState
	latest entity.Frame
	fresh  bool
	seq    uint64
}

func NewStream() *Stream {
	return &Stream{}
}

func (s *Stream) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case streamClosed:
		return ErrSourceClosed
	case streamActive:
		return ErrSourceBusy
	}
	s.state = streamActive
	return nil
}

// Push decodes one encoded frame and makes it the current frame, replacing
// any frame that was not consumed yet.
func (s *Stream) Push(data []byte) error {
	s.mu.Lock()
	active := s.state == streamActive
	s.mu.Unlock()
	if !active {
		return ErrSourceClosed
	}

	img, raw, mimeType, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != streamActive {
		return ErrSourceClosed
	}

	s.seq++
	frame := entity.NewFrame(img, s.seq, time.Now())
	frame.Data = raw
	frame.MimeType = mimeType

	s.latest = frame
	s.fresh = true
	return nil
}

func (s *Stream) Frame() (entity.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != streamActive || !s.fresh {
		return entity.Frame{}, false
	}
	s.fresh = false
	return s.latest, true
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = streamClosed
	s.latest = entity.Frame{}
	s.fresh = false
	return nil
}

func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == streamActive
}
