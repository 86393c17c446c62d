package provider

import (
	"context"
	"fmt"

	"FaceVision/internal/entity"
	websocketPkg "FaceVision/pkg/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type remoteFace struct {
	Box               entity.Box         `json:"box"`
	Score             float64            `json:"score"`
	Landmarks         []entity.Point     `json:"landmarks"`
	Expressions       map[string]float64 `json:"expressions"`
	Age               *float64           `json:"age"`
	Gender            string             `json:"gender"`
	GenderProbability *float64           `json:"gender_probability"`
}

type remoteReply struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Faces  []remoteFace `json:"faces"`
	Error  string       `json:"error"`
}

// Remote sends frames to an inference service over a websocket.
type Remote struct {
	client   websocketPkg.IWebsocket
	maxWidth int
	log      *logrus.Logger
}

func NewRemote(client websocketPkg.IWebsocket, maxWidth int, log *logrus.Logger) *Remote {
	return &Remote{client: client, maxWidth: maxWidth, log: log}
}

func (r *Remote) Name() string {
	return NameRemote
}

func (r *Remote) Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	data, _, space, err := encodeFrame(frame, r.maxWidth)
	if err != nil {
		return nil, err
	}

	message, err := r.client.Send(ctx, data)
	if err != nil {
		return nil, err
	}

	var reply remoteReply
	if err := jsoniter.Unmarshal(message, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling inference reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("inference service: %s", reply.Error)
	}

	if reply.Width > 0 && reply.Height > 0 {
		space = entity.Size{Width: reply.Width, Height: reply.Height}
	}

	detections := make([]entity.Detection, 0, len(reply.Faces))
	for _, f := range reply.Faces {
		detections = append(detections, entity.Detection{
			Box:               f.Box,
			Score:             f.Score,
			Landmarks:         f.Landmarks,
			Expressions:       f.Expressions,
			Age:               f.Age,
			Gender:            f.Gender,
			GenderProbability: f.GenderProbability,
			ImageSize:         space,
		})
	}

	r.log.WithFields(logrus.Fields{
		"seq":   frame.Seq,
		"faces": len(detections),
	}).Debug("Remote detection finished")

	return detections, nil
}

func (r *Remote) Close() error {
	r.client.Close()
	return nil
}
