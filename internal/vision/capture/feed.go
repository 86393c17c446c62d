package capture

import (
	"image"
	"sync"
	"time"

	"FaceVision/internal/entity"
)

const readRetry = 10 * time.Millisecond

// frameReader is a blocking producer of decoded frames, such as an open
// camera handle.
type frameReader interface {
	Read() (image.Image, error)
	Close() error
}

// feed reads from a frameReader on its own goroutine into a latest-frame
// slot, so taking a frame never waits on the device.
type feed struct {
	mu     sync.Mutex
	state  streamState
	latest entity.Frame
	fresh  bool
	seq    uint64
	quit   chan struct{}
	closed chan struct{}
}

func (f *feed) start(open func() (frameReader, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case streamClosed:
		return ErrSourceClosed
	case streamActive:
		return ErrSourceBusy
	}

	r, err := open()
	if err != nil {
		return err
	}

	f.quit = make(chan struct{})
	f.closed = make(chan struct{})
	f.state = streamActive

	go f.run(r, f.quit, f.closed)
	return nil
}

func (f *feed) run(r frameReader, quit, closed chan struct{}) {
	defer close(closed)
	defer r.Close()

	for {
		select {
		case <-quit:
			return
		default:
		}

		img, err := r.Read()
		if err != nil {
			select {
			case <-quit:
				return
			case <-time.After(readRetry):
			}
			continue
		}

		f.mu.Lock()
		if f.state == streamActive {
			f.seq++
			f.latest = entity.NewFrame(img, f.seq, time.Now())
			f.fresh = true
		}
		f.mu.Unlock()
	}
}

func (f *feed) frame() (entity.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != streamActive || !f.fresh {
		return entity.Frame{}, false
	}
	f.fresh = false
	return f.latest, true
}

// stop returns at once. The reader goroutine closes the device after its
// current read returns.
func (f *feed) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == streamActive {
		close(f.quit)
	}
	f.state = streamClosed
	f.latest = entity.Frame{}
	f.fresh = false
}

// released is closed once the reader has closed the device. It is nil if
// the feed never started.
func (f *feed) released() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}
