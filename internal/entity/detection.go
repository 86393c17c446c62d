package entity

import (
	"sort"

	"github.com/samber/lo"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Right() float64 {
	return b.X + b.Width
}

func (b Box) Bottom() float64 {
	return b.Y + b.Height
}

// Detection is one face found in a frame. Geometry is expressed in the
// coordinate space of ImageSize; a zero ImageSize means the frame's own size.
type Detection struct {
	Box               Box                `json:"box"`
	Score             float64            `json:"score,omitempty"`
	Landmarks         []Point            `json:"landmarks,omitempty"`
	Expressions       map[string]float64 `json:"expressions,omitempty"`
	Age               *float64           `json:"age,omitempty"`
	Gender            string             `json:"gender,omitempty"`
	GenderProbability *float64           `json:"genderProbability,omitempty"`
	ImageSize         Size               `json:"imageSize"`
}

// ExpressionOrder breaks ties between equally probable expressions.
var ExpressionOrder = []string{"neutral", "happy", "sad", "angry", "fearful", "disgusted", "surprised"}

func expressionRank(label string) int {
	if i := lo.IndexOf(ExpressionOrder, label); i >= 0 {
		return i
	}
	return len(ExpressionOrder)
}

// SortedExpressions returns the expression labels in canonical order.
// Unknown labels follow the canonical ones alphabetically.
func (d Detection) SortedExpressions() []string {
	labels := lo.Keys(d.Expressions)
	sort.Slice(labels, func(i, j int) bool {
		ri, rj := expressionRank(labels[i]), expressionRank(labels[j])
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
	return labels
}

// TopExpression returns the most probable expression. Exact ties resolve to
// the label that comes first in SortedExpressions.
func (d Detection) TopExpression() (string, float64, bool) {
	if len(d.Expressions) == 0 {
		return "", 0, false
	}

	var (
		best  string
		bestP float64
		found bool
	)
	for _, label := range d.SortedExpressions() {
		p := d.Expressions[label]
		if !found || p > bestP {
			best, bestP, found = label, p, true
		}
	}
	return best, bestP, found
}

func Float(v float64) *float64 {
	return &v
}
