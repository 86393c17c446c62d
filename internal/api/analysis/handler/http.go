package analysisHandler

import (
	analysisService "FaceVision/internal/api/analysis/service"
	"FaceVision/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AnalysisHandler struct {
	log             *logrus.Logger
	analysisService analysisService.AnalysisService
	middleware      middleware.Middleware
}

func New(
	log *logrus.Logger,
	as analysisService.AnalysisService,
	middleware middleware.Middleware) *AnalysisHandler {
	return &AnalysisHandler{
		log:             log,
		analysisService: as,
		middleware:      middleware,
	}
}

func (h *AnalysisHandler) Start(srv fiber.Router) {
	analysis := srv.Group("/analysis")
	analysis.Get("/live/:type", h.middleware.NewTokenMiddleware, h.HandleLiveUpgrade, websocket.New(h.HandleLive))
	analysis.Get("/history", h.middleware.NewTokenMiddleware, h.HandleHistory)
	analysis.Get("/:id", h.middleware.NewTokenMiddleware, h.HandleGetByID)
	analysis.Post("/:type", h.middleware.NewTokenMiddleware, h.HandleCreate)
}
