package provider

import (
	"context"
	"fmt"
	"strings"

	"FaceVision/internal/entity"
	"FaceVision/pkg/gemini"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// Gemini boxes are normalised to a 1000x1000 grid.
const geminiGrid = 1000

const geminiPrompt = `Detect every human face in this image.
Respond with a JSON array only. For each face return an object with:
- "box_2d": [ymin, xmin, ymax, xmax] normalised to 0-1000
- "expressions": probabilities for neutral, happy, sad, angry, fearful, disgusted, surprised
- "age": estimated age in years
- "gender": "male" or "female"
- "gender_probability": confidence of the gender estimate between 0 and 1
Return [] when there are no faces.`

type geminiFace struct {
	Box2D             []float64          `json:"box_2d"`
	Expressions       map[string]float64 `json:"expressions"`
	Age               *float64           `json:"age"`
	Gender            string             `json:"gender"`
	GenderProbability *float64           `json:"gender_probability"`
}

type Gemini struct {
	client gemini.IGemini
	log    *logrus.Logger
}

func NewGemini(client gemini.IGemini, log *logrus.Logger) *Gemini {
	return &Gemini{client: client, log: log}
}

func (g *Gemini) Name() string {
	return NameGemini
}

func (g *Gemini) Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	data, mimeType, _, err := encodeFrame(frame, 0)
	if err != nil {
		return nil, err
	}

	text, err := g.client.AnalyzeImage(ctx, data, mimeType, geminiPrompt)
	if err != nil {
		return nil, err
	}

	faces, err := parseGeminiFaces(text)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"seq":      frame.Seq,
			"response": text,
		}).Warn("Unparseable Gemini response")
		return nil, err
	}

	return faces, nil
}

func parseGeminiFaces(text string) ([]entity.Detection, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in Gemini response")
	}

	var faces []geminiFace
	if err := jsoniter.UnmarshalFromString(text[start:end+1], &faces); err != nil {
		return nil, fmt.Errorf("error unmarshaling Gemini response: %w", err)
	}

	space := entity.Size{Width: geminiGrid, Height: geminiGrid}
	detections := make([]entity.Detection, 0, len(faces))
	for _, f := range faces {
		if len(f.Box2D) != 4 {
			continue
		}
		ymin, xmin, ymax, xmax := f.Box2D[0], f.Box2D[1], f.Box2D[2], f.Box2D[3]
		detections = append(detections, entity.Detection{
			Box: entity.Box{
				X:      xmin,
				Y:      ymin,
				Width:  xmax - xmin,
				Height: ymax - ymin,
			},
			Expressions:       f.Expressions,
			Age:               f.Age,
			Gender:            f.Gender,
			GenderProbability: f.GenderProbability,
			ImageSize:         space,
		})
	}

	return detections, nil
}

func (g *Gemini) Close() error {
	g.client.Close()
	return nil
}
