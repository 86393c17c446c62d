package analysisService

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"FaceVision/internal/api/analysis"
	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/capture"
	"FaceVision/internal/vision/render"
	contextPkg "FaceVision/pkg/context"
	"FaceVision/pkg/redis"
	"FaceVision/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// Create analyses the uploaded image once, stores the image and its overlay,
// and records the result for the caller. Nothing is written unless the
// category and the image are valid and detection succeeded.
func (s *recordsDomainImpl) Create(c context.Context, user entity.UserLoginData, req analysis.CreateRequest) (entity.Analysis, error) {
	requestID := contextPkg.GetRequestID(c)

	analysisType, err := entity.ParseAnalysisType(req.Type)
	if err != nil {
		return entity.Analysis{}, analysis.ErrInvalidAnalysisType
	}

	if req.Image == nil {
		return entity.Analysis{}, analysis.ErrImageRequired
	}

	data, ext, err := s.utils.ReadImageFile(req.Image)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrNoFile):
			return entity.Analysis{}, analysis.ErrImageRequired
		case errors.Is(err, utils.ErrFileTooLarge):
			return entity.Analysis{}, analysis.ErrFileTooLarge
		case errors.Is(err, utils.ErrInvalidFileType):
			return entity.Analysis{}, analysis.ErrInvalidFileType
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to read uploaded image")
		return entity.Analysis{}, err
	}

	clientResults, ok := parseResults(req.Results)
	if !ok {
		return entity.Analysis{}, analysis.ErrInvalidResults
	}

	src := capture.NewStatic()
	if err := src.Load(bytes.NewReader(data)); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Uploaded image could not be decoded")
		return entity.Analysis{}, analysis.ErrInvalidImage
	}

	renderer, err := render.New(entity.Size{}, render.DefaultStyle())
	if err != nil {
		return entity.Analysis{}, err
	}

	loop := analyzer.New(s.detector, s.log, analyzer.WithTimeout(s.cfg.ProviderTimeout))
	detections, err := loop.AnalyzeOnce(c, string(analysisType), src, renderer)
	if err != nil {
		if errors.Is(err, analyzer.ErrProviderFailure) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"provider":   s.detector.Name(),
				"error":      err.Error(),
			}).Error("Detection provider failed on upload")
			return entity.Analysis{}, analysis.ErrProviderFailure
		}
		return entity.Analysis{}, err
	}

	var overlay bytes.Buffer
	if err := renderer.EncodePNG(&overlay); err != nil {
		return entity.Analysis{}, err
	}

	now := s.now()
	suffix, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return entity.Analysis{}, err
	}
	base := strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix

	var stored []string
	fail := func(err error) (entity.Analysis, error) {
		s.discard(c, stored)
		return entity.Analysis{}, err
	}

	imageURL, err := s.storage.Save(c, base+ext, mimetype.Detect(data).String(), data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store uploaded image")
		return entity.Analysis{}, err
	}
	stored = append(stored, base+ext)

	overlayURL, err := s.storage.Save(c, base+"-overlay.png", "image/png", overlay.Bytes())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store overlay")
		return fail(err)
	}
	stored = append(stored, base+"-overlay.png")

	results, err := mergeResults(clientResults, map[string]interface{}{
		"processed":  true,
		"timestamp":  now.UTC(),
		"provider":   s.detector.Name(),
		"faceCount":  len(detections),
		"detections": detections,
		"overlayUrl": overlayURL,
	})
	if err != nil {
		return fail(err)
	}

	record, err := s.repo.Create(c, entity.Analysis{
		UserID:    user.ID,
		Type:      analysisType,
		ImageURL:  imageURL,
		Results:   results,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fail(err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"analysis_id": record.ID,
		"type":        record.Type,
		"faces":       len(detections),
	}).Info("Analysis created")

	s.invalidateHistory(c, user.ID)
	s.publishCreated(requestID, record, len(detections))

	return record, nil
}

// History serves the caller's latest records, cached per user under the
// current history version. Creating a record bumps the version, so a list
// read before the bump is never served afterwards.
func (s *recordsDomainImpl) History(c context.Context, user entity.UserLoginData) ([]entity.Analysis, error) {
	requestID := contextPkg.GetRequestID(c)

	key, cacheable := s.historyCacheKey(c, user.ID)
	if cacheable {
		var cached []entity.Analysis
		err := s.cache.GetJSON(c, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("History cache read failed")
		}
	}

	records, err := s.repo.History(c, user.ID, analysis.HistoryLimit)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetJSON(c, key, records, s.cfg.HistoryTTL); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("History cache write failed")
		}
	}

	return records, nil
}

func (s *recordsDomainImpl) historyCacheKey(c context.Context, userID string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	var version int64
	err := s.cache.GetJSON(c, historyVersionKey(userID), &version)
	if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Warn("History version read failed, bypassing cache")
		return "", false
	}
	return historyKey(userID, version), true
}

func (s *recordsDomainImpl) GetByID(c context.Context, user entity.UserLoginData, id string) (entity.Analysis, error) {
	return s.repo.GetByID(c, user.ID, id)
}

// discard removes objects stored for an upload that was not recorded.
func (s *recordsDomainImpl) discard(c context.Context, names []string) {
	ctx := context.WithoutCancel(c)
	for _, name := range names {
		if err := s.storage.Delete(ctx, name); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(c),
				"object":     name,
				"error":      err.Error(),
			}).Warn("Failed to remove orphaned upload")
		}
	}
}

func (s *recordsDomainImpl) invalidateHistory(c context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(c, historyVersionKey(userID)); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Warn("Failed to invalidate history cache")
	}
}

func (s *recordsDomainImpl) publishCreated(requestID string, record entity.Analysis, faces int) {
	if s.publisher == nil {
		return
	}

	event := analysis.CreatedEvent{
		ID:        record.ID,
		UserID:    record.UserID,
		Type:      record.Type,
		ImageURL:  record.ImageURL,
		FaceCount: faces,
		CreatedAt: record.CreatedAt,
	}
	if err := s.publisher.Publish(analysis.CreatedTopic, event); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"analysis_id": record.ID,
			"error":       err.Error(),
		}).Warn("Failed to publish analysis event")
	}
}
