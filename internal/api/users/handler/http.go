package usersHandler

import (
	usersService "FaceVision/internal/api/users/service"
	"FaceVision/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type UsersHandler struct {
	log          *logrus.Logger
	usersService usersService.UsersService
	validator    *validator.Validate
	middleware   middleware.Middleware
}

func New(
	log *logrus.Logger,
	us usersService.UsersService,
	validate *validator.Validate,
	middleware middleware.Middleware) *UsersHandler {
	return &UsersHandler{
		log:          log,
		usersService: us,
		validator:    validate,
		middleware:   middleware,
	}
}

func (h *UsersHandler) Start(srv fiber.Router) {
	users := srv.Group("/users")
	users.Post("/register", h.middleware.NewRateLimiter, h.HandleRegister)
	users.Post("/login", h.middleware.NewRateLimiter, h.HandleLogin)
	users.Get("/profile", h.middleware.NewTokenMiddleware, h.HandleGetProfile)
	users.Patch("/profile", h.middleware.NewTokenMiddleware, h.HandleUpdateProfile)
}
