package analysisHandler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"FaceVision/internal/api/analysis"
	analysisService "FaceVision/internal/api/analysis/service"
	"FaceVision/internal/entity"
	"FaceVision/internal/middleware"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/capture"
	"FaceVision/internal/vision/render"
	contextPkg "FaceVision/pkg/context"
	"FaceVision/pkg/handlerUtil"
	"FaceVision/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const stopCommand = "stop"

// HandleLiveUpgrade rejects unknown categories and plain HTTP requests
// before the websocket handshake.
func (h *AnalysisHandler) HandleLiveUpgrade(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	if _, err := entity.ParseAnalysisType(ctx.Params("type")); err != nil {
		return errHandler.Handle(ctx, requestID, analysis.ErrInvalidAnalysisType, ctx.Path(), "live_analysis")
	}
	if !websocket.IsWebSocketUpgrade(ctx) {
		return errHandler.Handle(ctx, requestID, fiber.ErrUpgradeRequired, ctx.Path(), "live_analysis")
	}
	return ctx.Next()
}

// liveConn serialises writes from the loop goroutine and the reader.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *liveConn) write(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

func (l *liveConn) writeJSON(v interface{}) error {
	raw, err := jsoniter.Marshal(v)
	if err != nil {
		return err
	}
	return l.write(websocket.TextMessage, raw)
}

// HandleLive runs one camera session. The client pushes binary JPEG or PNG
// frames and receives a LiveMessage per analysed frame, followed by the PNG
// overlay when the overlay query parameter is 1.
func (h *AnalysisHandler) HandleLive(conn *websocket.Conn) {
	requestID, _ := conn.Locals(middleware.RequestIDKey).(string)
	user, _ := conn.Locals(middleware.UserLocalsKey).(entity.UserLoginData)
	category := conn.Params("type")
	withOverlay := conn.Query("overlay") == "1"

	ctx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))
	defer cancel()

	logger := h.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
		"type":       category,
	})
	out := &liveConn{conn: conn}

	var renderer *render.Renderer
	if withOverlay {
		r, err := render.New(entity.Size{}, render.DefaultStyle())
		if err != nil {
			logger.WithField("error", err.Error()).Error("Failed to create overlay renderer")
			_ = out.writeJSON(analysis.LiveError{Error: "Internal Server Error"})
			return
		}
		renderer = r
	}

	sink := analyzer.SinkFunc(func(frame entity.Frame, detections []entity.Detection) {
		if detections == nil {
			detections = []entity.Detection{}
		}
		msg := analysis.LiveMessage{
			Seq:        frame.Seq,
			Faces:      len(detections),
			Detections: detections,
			Labels:     analysisService.Labels(detections),
		}
		if err := out.writeJSON(msg); err != nil {
			logger.WithField("error", err.Error()).Debug("Failed to send live result")
			return
		}

		if renderer == nil {
			return
		}
		renderer.Present(frame, detections)
		var buf bytes.Buffer
		if err := renderer.EncodePNG(&buf); err != nil {
			return
		}
		if err := out.write(websocket.BinaryMessage, buf.Bytes()); err != nil {
			logger.WithField("error", err.Error()).Debug("Failed to send live overlay")
		}
	})

	session, err := h.analysisService.Live().Open(ctx, user, category, sink)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Live session rejected")
		_ = out.writeJSON(analysis.LiveError{Error: liveErrorMessage(err)})
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.WithField("error", err.Error()).Warn("Live session closed with error")
		}
		stats := session.Stats()
		logger.WithFields(logrus.Fields{
			"ticks":     stats.Ticks,
			"presented": stats.Presented,
			"dropped":   stats.Dropped,
			"failed":    stats.Failed,
		}).Info("Live analysis session ended")
	}()

	var notifyReplaced sync.Once
	replacedExit := func() {
		notifyReplaced.Do(func() {
			_ = out.writeJSON(analysis.LiveError{Error: analysis.ErrSessionReplaced.Error()})
		})
	}

	// An idle client is told about the takeover without waiting for its
	// next frame. Closing the connection ends the read loop below.
	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-session.Evicted():
			logger.Info("Live session replaced by a newer one")
			replacedExit()
			_ = conn.Close()
		case <-watchCtx.Done():
		}
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) == stopCommand {
				return
			}
		case websocket.BinaryMessage:
			err := session.Push(data)
			switch {
			case err == nil:
			case errors.Is(err, analysis.ErrSessionReplaced):
				replacedExit()
				return
			case errors.Is(err, capture.ErrSourceClosed):
				_ = out.writeJSON(analysis.LiveError{Error: liveErrorMessage(err)})
				return
			default:
				logger.WithField("error", err.Error()).Debug("Dropped undecodable frame")
				_ = out.writeJSON(analysis.LiveError{Error: analysis.ErrInvalidImage.Error()})
			}
		}
	}
}

func liveErrorMessage(err error) string {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr.Error()
	}
	if errors.Is(err, capture.ErrDeviceUnavailable) || errors.Is(err, capture.ErrSourceClosed) {
		return err.Error()
	}
	return "Internal Server Error"
}
