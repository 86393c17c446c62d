package utils

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// fileHeader builds a real multipart.FileHeader by round-tripping a form.
func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["image"][0]
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	now := time.Now()

	id, err := u.NewULIDFromTimestamp(now)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestReadImageFile(t *testing.T) {
	u := New()

	data, ext, err := u.ReadImageFile(fileHeader(t, "Photo.PNG", "image/png", pngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)
	assert.NotEmpty(t, data)
}

func TestReadImageFileRejects(t *testing.T) {
	u := New()

	tests := []struct {
		name string
		file *multipart.FileHeader
		want error
	}{
		{"missing", nil, ErrNoFile},
		{"bad extension", fileHeader(t, "photo.gif", "image/png", pngBytes(t)), ErrInvalidFileType},
		{"bad content type", fileHeader(t, "photo.png", "text/plain", pngBytes(t)), ErrInvalidFileType},
		{"not an image", fileHeader(t, "photo.jpg", "image/jpeg", []byte("plain text body")), ErrInvalidFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := u.ReadImageFile(tt.file)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadImageFileTooLarge(t *testing.T) {
	u := &utils{maxFileSize: 8}

	_, _, err := u.ReadImageFile(fileHeader(t, "photo.png", "image/png", pngBytes(t)))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
