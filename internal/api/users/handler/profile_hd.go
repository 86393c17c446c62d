package usersHandler

import (
	"time"

	"FaceVision/internal/api/users"
	contextPkg "FaceVision/pkg/context"
	"FaceVision/pkg/handlerUtil"
	jwtPkg "FaceVision/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"golang.org/x/net/context"
)

func (h *UsersHandler) HandleGetProfile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Please authenticate")
	}

	res, err := h.usersService.Profile().Get(c, userData)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_profile")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

// HandleUpdateProfile rejects the whole request when the body names any
// field other than name or password.
func (h *UsersHandler) HandleUpdateProfile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Please authenticate")
	}

	var fields map[string]jsoniter.RawMessage
	if err := jsoniter.Unmarshal(ctx.Body(), &fields); err != nil {
		return errHandler.HandleBadRequest(ctx, requestID, "Invalid request body")
	}

	if _, ok := lo.Find(lo.Keys(fields), func(k string) bool {
		return !lo.Contains(users.AllowedProfileUpdates, k)
	}); ok {
		return errHandler.Handle(ctx, requestID, users.ErrInvalidUpdates, ctx.Path(), "update_profile")
	}

	var req users.UpdateProfileRequest
	if err := jsoniter.Unmarshal(ctx.Body(), &req); err != nil {
		return errHandler.HandleBadRequest(ctx, requestID, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.usersService.Profile().Update(c, userData, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "update_profile")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
