package analysisService

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"FaceVision/internal/api/analysis"
	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/capture"
	contextPkg "FaceVision/pkg/context"
	"github.com/sirupsen/logrus"
)

// LiveSession is one camera stream analysed continuously. Frames pushed by
// the client feed the loop; results reach the sink given to Open.
type LiveSession struct {
	userID   string
	stream   *capture.Stream
	loop     *analyzer.Loop
	owner    *liveDomainImpl
	replaced atomic.Bool
	evicted  chan struct{}

	once    sync.Once
	stopErr error
}

// Open starts a live session for user. An existing session of the same user
// is stopped first so only one loop ever reads that user's camera.
func (l *liveDomainImpl) Open(c context.Context, user entity.UserLoginData, category string, sink analyzer.Sink) (*LiveSession, error) {
	requestID := contextPkg.GetRequestID(c)

	if _, err := entity.ParseAnalysisType(category); err != nil {
		return nil, analysis.ErrInvalidAnalysisType
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.sessions[user.ID]; ok {
		old.replaced.Store(true)
		close(old.evicted)
		if err := old.stop(); err != nil {
			l.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"user_id":    user.ID,
				"error":      err.Error(),
			}).Warn("Replaced live session stopped with error")
		}
		delete(l.sessions, user.ID)
	}

	stream := capture.NewStream()
	loop := analyzer.New(l.detector, l.log,
		analyzer.WithClock(l.clock),
		analyzer.WithFPS(l.cfg.LiveFPS),
		analyzer.WithTimeout(l.cfg.ProviderTimeout),
	)

	if err := loop.Start(c, category, stream, sink); err != nil {
		l.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    user.ID,
			"error":      err.Error(),
		}).Error("Failed to start live analysis")
		return nil, err
	}

	session := &LiveSession{
		userID:  user.ID,
		stream:  stream,
		loop:    loop,
		owner:   l,
		evicted: make(chan struct{}),
	}
	l.sessions[user.ID] = session

	l.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
		"type":       category,
	}).Info("Live analysis session opened")

	return session, nil
}

func (l *liveDomainImpl) Active(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.sessions[userID]
	return ok
}

func (l *liveDomainImpl) release(s *LiveSession) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.sessions[s.userID]; ok && current == s {
		delete(l.sessions, s.userID)
	}
}

// Push hands one encoded camera frame to the loop.
func (s *LiveSession) Push(data []byte) error {
	err := s.stream.Push(data)
	if errors.Is(err, capture.ErrSourceClosed) && s.replaced.Load() {
		return analysis.ErrSessionReplaced
	}
	return err
}

// Close stops the loop and releases the camera. It is safe to call more
// than once.
func (s *LiveSession) Close() error {
	s.owner.release(s)
	return s.stop()
}

func (s *LiveSession) Replaced() bool {
	return s.replaced.Load()
}

// Evicted is closed when a newer session of the same user takes over.
func (s *LiveSession) Evicted() <-chan struct{} {
	return s.evicted
}

func (s *LiveSession) Stats() analyzer.Stats {
	return s.loop.Stats()
}

func (s *LiveSession) stop() error {
	s.once.Do(func() {
		s.stopErr = s.loop.Stop()
	})
	return s.stopErr
}
