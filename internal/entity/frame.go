package entity

import (
	"image"
	"time"
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Frame is one decoded image sample. Data and MimeType hold the encoded
// bytes when the source received the frame already encoded.
type Frame struct {
	Image      image.Image
	Width      int
	Height     int
	Seq        uint64
	CapturedAt time.Time
	Data       []byte
	MimeType   string
}

func NewFrame(img image.Image, seq uint64, capturedAt time.Time) Frame {
	b := img.Bounds()
	return Frame{
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Seq:        seq,
		CapturedAt: capturedAt,
	}
}

func (f Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

func (f Frame) Empty() bool {
	return f.Image == nil
}
