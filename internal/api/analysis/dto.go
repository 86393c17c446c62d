package analysis

import (
	"mime/multipart"
	"time"

	"FaceVision/internal/entity"
)

// HistoryLimit caps the number of records returned by the history endpoint.
const HistoryLimit = 20

// CreatedTopic is the MQTT topic, relative to the configured prefix, that
// receives one event per stored analysis.
const CreatedTopic = "analysis/created"

type CreateRequest struct {
	Type    string
	Image   *multipart.FileHeader
	Results string
}

type CreatedEvent struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Type      entity.AnalysisType `json:"type"`
	ImageURL  string              `json:"imageUrl"`
	FaceCount int                 `json:"faceCount"`
	CreatedAt time.Time           `json:"createdAt"`
}

// LiveMessage is sent to the camera client once per rendered tick.
type LiveMessage struct {
	Seq        uint64             `json:"seq"`
	Faces      int                `json:"faces"`
	Detections []entity.Detection `json:"detections"`
	Labels     []string           `json:"labels"`
}

type LiveError struct {
	Error string `json:"error"`
}
