package render

import (
	"fmt"
	"math"
	"strings"

	"FaceVision/internal/entity"
	"github.com/samber/lo"
)

// textOffset is the distance between the box bottom and the age/gender text.
const textOffset = 15

// Overlay is one detection mapped into display coordinates, with its labels.
type Overlay struct {
	Box        entity.Box     `json:"box"`
	Landmarks  []entity.Point `json:"landmarks,omitempty"`
	Expression string         `json:"expression,omitempty"`
	Text       string         `json:"text,omitempty"`
	TextAnchor entity.Point   `json:"textAnchor"`
}

// Layout maps detections from their provider coordinate space to display.
// Detections without an ImageSize are taken to be in frame space.
func Layout(frame, display entity.Size, detections []entity.Detection) []Overlay {
	overlays := make([]Overlay, 0, len(detections))

	for _, d := range detections {
		space := d.ImageSize
		if space.IsZero() {
			space = frame
		}
		sx, sy := scaleFactors(space, display)

		box := entity.Box{
			X:      d.Box.X * sx,
			Y:      d.Box.Y * sy,
			Width:  d.Box.Width * sx,
			Height: d.Box.Height * sy,
		}

		overlay := Overlay{
			Box: box,
			Landmarks: lo.Map(d.Landmarks, func(p entity.Point, _ int) entity.Point {
				return entity.Point{X: p.X * sx, Y: p.Y * sy}
			}),
			Text:       AgeGenderText(d),
			TextAnchor: entity.Point{X: box.X, Y: box.Bottom() + textOffset},
		}
		if label, p, ok := d.TopExpression(); ok {
			overlay.Expression = ExpressionText(label, p)
		}

		overlays = append(overlays, overlay)
	}

	return overlays
}

func scaleFactors(from, to entity.Size) (float64, float64) {
	if from.IsZero() || to.IsZero() {
		return 1, 1
	}
	return float64(to.Width) / float64(from.Width), float64(to.Height) / float64(from.Height)
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// AgeGenderText formats "{age} years {gender} ({percent}%)". Missing parts
// are left out and an empty string means there is nothing to draw.
func AgeGenderText(d entity.Detection) string {
	parts := make([]string, 0, 2)

	if finite(d.Age) {
		parts = append(parts, fmt.Sprintf("%d years", int(math.Round(*d.Age))))
	}

	if d.Gender != "" {
		gender := d.Gender
		if finite(d.GenderProbability) {
			gender = fmt.Sprintf("%s (%d%%)", gender, int(math.Round(*d.GenderProbability*100)))
		}
		parts = append(parts, gender)
	}

	return strings.Join(parts, " ")
}

func ExpressionText(label string, p float64) string {
	return fmt.Sprintf("%s (%.2f)", label, p)
}
