package analysisService

import (
	"strconv"

	"FaceVision/internal/entity"
	"FaceVision/internal/vision/render"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

func historyKey(userID string, version int64) string {
	return "analysis:history:" + userID + ":" + strconv.FormatInt(version, 10)
}

func historyVersionKey(userID string) string {
	return "analysis:history:" + userID + ":version"
}

// parseResults reads the optional client-supplied results form field.
func parseResults(raw string) (map[string]interface{}, bool) {
	if raw == "" {
		return nil, true
	}

	var out map[string]interface{}
	if err := jsoniter.UnmarshalFromString(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// mergeResults lays the server-computed keys over the client's and
// normalises every value to its JSON form so it stores as a plain document.
func mergeResults(client, server map[string]interface{}) (map[string]interface{}, error) {
	merged := lo.Assign(client, server)

	raw, err := jsoniter.Marshal(merged)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := jsoniter.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Labels returns the overlay texts of every detection, expression first.
func Labels(detections []entity.Detection) []string {
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if label, p, ok := d.TopExpression(); ok {
			labels = append(labels, render.ExpressionText(label, p))
		}
		if text := render.AgeGenderText(d); text != "" {
			labels = append(labels, text)
		}
	}
	return labels
}
