package entity

import (
	"errors"
	"time"
)

type AnalysisType string

const (
	AnalysisFace  AnalysisType = "face"
	AnalysisGroup AnalysisType = "group"
	AnalysisCrowd AnalysisType = "crowd"
)

var ErrInvalidAnalysisType = errors.New("invalid analysis type")

var AnalysisTypes = []AnalysisType{AnalysisFace, AnalysisGroup, AnalysisCrowd}

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisFace, AnalysisGroup, AnalysisCrowd:
		return true
	}
	return false
}

// ParseAnalysisType accepts only the closed set of categories. Matching is exact.
func ParseAnalysisType(s string) (AnalysisType, error) {
	t := AnalysisType(s)
	if !t.Valid() {
		return "", ErrInvalidAnalysisType
	}
	return t, nil
}

type Analysis struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      AnalysisType           `json:"type"`
	ImageURL  string                 `json:"imageUrl"`
	Results   map[string]interface{} `json:"results"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}
