package analysisHandler

import (
	"time"

	"FaceVision/internal/api/analysis"
	contextPkg "FaceVision/pkg/context"
	"FaceVision/pkg/handlerUtil"
	jwtPkg "FaceVision/pkg/jwt"
	"FaceVision/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// HandleCreate accepts a multipart form with an "image" file and an optional
// "results" JSON object.
func (h *AnalysisHandler) HandleCreate(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Please authenticate")
	}

	req := analysis.CreateRequest{
		Type:    ctx.Params("type"),
		Results: ctx.FormValue("results"),
	}
	if file, err := ctx.FormFile("image"); err == nil {
		req.Image = file
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"type":       req.Type,
		"has_image":  req.Image != nil,
	}).Debug("Processing analysis upload")

	res, err := h.analysisService.Records().Create(c, userData, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_analysis")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}

func (h *AnalysisHandler) HandleHistory(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Please authenticate")
	}

	res, err := h.analysisService.Records().History(c, userData)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analysis_history")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *AnalysisHandler) HandleGetByID(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Please authenticate")
	}

	res, err := h.analysisService.Records().GetByID(c, userData, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_analysis")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
