package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStaticLoadAndReplace(t *testing.T) {
	s := NewStatic()
	require.ErrorIs(t, s.Start(context.Background()), ErrNoImage)

	require.NoError(t, s.Load(bytes.NewReader(encodePNG(t, 40, 30))))
	require.NoError(t, s.Start(context.Background()))

	frame, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, 40, frame.Width)
	assert.Equal(t, 30, frame.Height)
	assert.Equal(t, "image/png", frame.MimeType)

	again, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, frame.Seq, again.Seq)

	require.NoError(t, s.Stop())
	afterStop, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, frame.Seq, afterStop.Seq)

	require.NoError(t, s.Load(bytes.NewReader(encodePNG(t, 10, 20))))
	replaced, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, 10, replaced.Width)
	assert.Greater(t, replaced.Seq, frame.Seq)
}

func TestStaticRejectsNonImage(t *testing.T) {
	s := NewStatic()
	err := s.Load(bytes.NewReader([]byte("definitely not an image")))
	require.ErrorIs(t, err, ErrUnsupportedImage)

	_, ok := s.Frame()
	assert.False(t, ok)
}

func TestStreamFramesAreEphemeral(t *testing.T) {
	s := NewStream()
	require.ErrorIs(t, s.Push(encodePNG(t, 8, 8)), ErrSourceClosed)

	require.NoError(t, s.Start(context.Background()))
	_, ok := s.Frame()
	assert.False(t, ok)

	require.NoError(t, s.Push(encodePNG(t, 8, 8)))
	require.NoError(t, s.Push(encodePNG(t, 16, 8)))

	frame, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, 16, frame.Width)
	assert.Equal(t, uint64(2), frame.Seq)

	_, ok = s.Frame()
	assert.False(t, ok)
}

func TestStreamStopIsIdempotentAndFinal(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Push(encodePNG(t, 8, 8)))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	_, ok := s.Frame()
	assert.False(t, ok)
	assert.False(t, s.Active())
	assert.ErrorIs(t, s.Push(encodePNG(t, 8, 8)), ErrSourceClosed)
	assert.ErrorIs(t, s.Start(context.Background()), ErrSourceClosed)
}

func TestStreamRejectsSecondStart(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSourceBusy)
	assert.True(t, s.Active())

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSourceClosed)
}
