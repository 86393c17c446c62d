package users

import (
	"net/http"

	"FaceVision/pkg/response"
)

var (
	ErrCredentialsRequired = response.NewError(http.StatusBadRequest, "Email and password are required")
	ErrEmailAlreadyExists  = response.NewError(http.StatusBadRequest, "Email already exists")
	ErrInvalidCredentials  = response.NewError(http.StatusUnauthorized, "Invalid credentials")
	ErrUnauthenticated     = response.NewError(http.StatusUnauthorized, "Please authenticate")
	ErrInvalidUpdates      = response.NewError(http.StatusBadRequest, "Invalid updates")
	ErrUserNotFound        = response.NewError(http.StatusNotFound, "user not found")
)
