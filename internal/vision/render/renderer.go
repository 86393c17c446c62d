// Package render draws detection overlays onto a transparent surface.
package render

import (
	"errors"
	"image"
	"image/color"
	"io"
	"sync"

	"FaceVision/internal/entity"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var errNoSurface = errors.New("nothing rendered yet")

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return goFont, fontErr
}

type Style struct {
	BoxColor       color.Color
	BoxWidth       float64
	LandmarkColor  color.Color
	LandmarkRadius float64
	TextColor      color.Color
	TextBackground color.Color
	FontSize       float64
	Padding        float64
}

func DefaultStyle() Style {
	return Style{
		BoxColor:       color.RGBA{R: 0, G: 0, B: 255, A: 255},
		BoxWidth:       2,
		LandmarkColor:  color.RGBA{R: 0, G: 255, B: 255, A: 255},
		LandmarkRadius: 1.5,
		TextColor:      color.White,
		TextBackground: color.NRGBA{R: 0, G: 0, B: 0, A: 128},
		FontSize:       16,
		Padding:        5,
	}
}

// Renderer owns one overlay surface. A zero display size makes the surface
// follow the size of each rendered frame.
type Renderer struct {
	mu      sync.Mutex
	style   Style
	face    font.Face
	dc      *gg.Context
	display entity.Size
	follow  bool
}

func New(display entity.Size, style Style) (*Renderer, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		style:  style,
		face:   truetype.NewFace(f, &truetype.Options{Size: style.FontSize}),
		follow: display.IsZero(),
	}
	if !r.follow {
		r.resize(display)
	}
	return r, nil
}

// Resize fixes the display size used by later renders.
func (r *Renderer) Resize(display entity.Size) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.follow = display.IsZero()
	if !r.follow {
		r.resize(display)
	}
}

func (r *Renderer) resize(display entity.Size) {
	if r.dc != nil && r.display == display {
		return
	}
	r.display = display
	r.dc = gg.NewContext(display.Width, display.Height)
}

// Render clears the surface and draws every detection scaled to the display.
func (r *Renderer) Render(frame entity.Size, detections []entity.Detection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.follow {
		if frame.IsZero() {
			return
		}
		r.resize(frame)
	}
	if r.dc == nil {
		return
	}

	r.dc.SetColor(color.Transparent)
	r.dc.Clear()

	for _, o := range Layout(frame, r.display, detections) {
		r.draw(o)
	}
}

// Present renders the frame's detections.
func (r *Renderer) Present(frame entity.Frame, detections []entity.Detection) {
	r.Render(frame.Size(), detections)
}

func (r *Renderer) draw(o Overlay) {
	dc := r.dc

	dc.SetColor(r.style.BoxColor)
	dc.SetLineWidth(r.style.BoxWidth)
	dc.DrawRectangle(o.Box.X, o.Box.Y, o.Box.Width, o.Box.Height)
	dc.Stroke()

	if len(o.Landmarks) > 0 {
		dc.SetColor(r.style.LandmarkColor)
		for _, p := range o.Landmarks {
			dc.DrawCircle(p.X, p.Y, r.style.LandmarkRadius)
		}
		dc.Fill()
	}

	if o.Expression != "" {
		r.drawLabel(o.Expression, o.Box.X, o.Box.Y, true)
	}
	if o.Text != "" {
		r.drawLabel(o.Text, o.TextAnchor.X, o.TextAnchor.Y, false)
	}
}

// drawLabel draws text on a padded background box whose top-left corner is
// (x, y), or whose bottom-left corner is (x, y) when above is set.
func (r *Renderer) drawLabel(text string, x, y float64, above bool) {
	dc := r.dc
	dc.SetFontFace(r.face)

	pad := r.style.Padding
	w, h := dc.MeasureString(text)
	top := y
	if above {
		top = y - h - 2*pad
	}

	dc.SetColor(r.style.TextBackground)
	dc.DrawRectangle(x, top, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(r.style.TextColor)
	dc.DrawStringAnchored(text, x+pad, top+pad, 0, 1)
}

func (r *Renderer) Display() entity.Size {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.display
}

// Surface returns a copy of the current overlay, or nil before the first
// render of a following renderer.
func (r *Renderer) Surface() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dc == nil {
		return nil
	}
	return imaging.Clone(r.dc.Image())
}

func (r *Renderer) EncodePNG(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dc == nil {
		return errNoSurface
	}
	return r.dc.EncodePNG(w)
}
