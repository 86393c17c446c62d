package analysis

import (
	"net/http"

	"FaceVision/pkg/response"
)

var (
	ErrInvalidAnalysisType = response.NewError(http.StatusBadRequest, "Invalid analysis type")
	ErrImageRequired       = response.NewError(http.StatusBadRequest, "No image provided")
	ErrInvalidFileType     = response.NewError(http.StatusBadRequest, "Only .png, .jpg and .jpeg format allowed")
	ErrFileTooLarge        = response.NewError(http.StatusBadRequest, "Image exceeds the 5MB limit")
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "Image could not be decoded")
	ErrInvalidResults      = response.NewError(http.StatusBadRequest, "Results must be a JSON object")
	ErrProviderFailure     = response.NewError(http.StatusBadGateway, "Face detection failed")
	ErrAnalysisNotFound    = response.NewError(http.StatusNotFound, "Analysis not found")
	ErrSessionReplaced     = response.NewError(http.StatusConflict, "Live session replaced by a newer one")
)
