// Package analyzer drives capture, detection and rendering, either once for
// an uploaded image or continuously for a camera.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FaceVision/internal/entity"
	"FaceVision/internal/vision/capture"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRunning  = errors.New("analysis loop already running")
	ErrProviderFailure = errors.New("detection provider failure")
	ErrNoFrame         = errors.New("no frame available")
)

const (
	DefaultFPS     = 10
	DefaultTimeout = 5 * time.Second
)

type Detector interface {
	Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error)
}

// Sink receives the detections of each analysed frame. It is called from the
// loop goroutine and must not call Loop.Stop.
type Sink interface {
	Present(frame entity.Frame, detections []entity.Detection)
}

type SinkFunc func(frame entity.Frame, detections []entity.Detection)

func (f SinkFunc) Present(frame entity.Frame, detections []entity.Detection) {
	f(frame, detections)
}

type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Submitted uint64 `json:"submitted"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Presented uint64 `json:"presented"`
}

type Option func(*Loop)

func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithFPS(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.interval = time.Second / time.Duration(fps)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// Loop runs at most one continuous session at a time and never has more
// than one detector call outstanding.
type Loop struct {
	detector Detector
	log      *logrus.Logger
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopErr error

	ticks     atomic.Uint64
	submitted atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	presented atomic.Uint64
}

func New(detector Detector, log *logrus.Logger, opts ...Option) *Loop {
	l := &Loop{
		detector: detector,
		log:      log,
		clock:    clock.New(),
		interval: time.Second / DefaultFPS,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type result struct {
	frame      entity.Frame
	detections []entity.Detection
	err        error
}

// Start validates the category, starts the source and begins ticking. The
// source is stopped when the loop ends, whatever the reason.
func (l *Loop) Start(ctx context.Context, category string, src capture.Source, sink Sink) error {
	analysisType, err := entity.ParseAnalysisType(category)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.runningLocked() {
		return ErrAlreadyRunning
	}

	if err := src.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := l.clock.Ticker(l.interval)
	done := make(chan struct{})

	l.cancel = cancel
	l.done = done
	l.stopErr = nil

	l.log.WithFields(logrus.Fields{
		"type":        analysisType,
		"interval_ms": l.interval.Milliseconds(),
	}).Info("Analysis loop started")

	go l.run(runCtx, src, sink, ticker, done)

	return nil
}

func (l *Loop) runningLocked() bool {
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.runningLocked()
}

func (l *Loop) run(ctx context.Context, src capture.Source, sink Sink, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	defer func() {
		if err := src.Stop(); err != nil {
			l.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Failed to release capture source")
			l.mu.Lock()
			l.stopErr = err
			l.mu.Unlock()
		}
	}()

	results := make(chan result, 1)
	inFlight := false

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			l.ticks.Add(1)
			if inFlight {
				l.dropped.Add(1)
				continue
			}

			frame, ok := src.Frame()
			if !ok {
				continue
			}
			if ctx.Err() != nil {
				return
			}

			inFlight = true
			l.submitted.Add(1)
			go l.detect(ctx, frame, results)

		case res := <-results:
			inFlight = false
			if ctx.Err() != nil {
				return
			}

			if res.err != nil {
				l.failed.Add(1)
				l.log.WithFields(logrus.Fields{
					"seq":   res.frame.Seq,
					"error": res.err.Error(),
				}).Warn("Detection failed, presenting no faces")
				res.detections = nil
			}

			sink.Present(res.frame, res.detections)
			l.presented.Add(1)
		}
	}
}

func (l *Loop) detect(ctx context.Context, frame entity.Frame, results chan<- result) {
	detections, err := l.call(ctx, frame)

	select {
	case results <- result{frame: frame, detections: detections, err: err}:
	case <-ctx.Done():
	}
}

// call bounds a detector call by the loop timeout even when the detector
// ignores its context. An abandoned call finishes in the background and its
// result is dropped.
func (l *Loop) call(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		detections, err := l.detector.Detect(callCtx, frame)
		done <- result{detections: detections, err: err}
	}()

	select {
	case res := <-done:
		return res.detections, res.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// Stop cancels the running session and waits for the loop goroutine, but not
// for an outstanding detector call, whose result is dropped. Once Stop
// returns nothing more is presented. It returns the error from releasing the
// source, if any.
func (l *Loop) Stop() error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == done {
		l.done = nil
	}
	l.log.Info("Analysis loop stopped")
	return l.stopErr
}

// AnalyzeOnce runs a single detection on the source's current frame and
// presents it once. Detector errors are returned wrapped in
// ErrProviderFailure.
func (l *Loop) AnalyzeOnce(ctx context.Context, category string, src capture.Source, sink Sink) ([]entity.Detection, error) {
	if _, err := entity.ParseAnalysisType(category); err != nil {
		return nil, err
	}

	if err := src.Start(ctx); err != nil {
		return nil, err
	}
	defer src.Stop()

	frame, ok := src.Frame()
	if !ok {
		return nil, ErrNoFrame
	}

	l.submitted.Add(1)
	detections, err := l.call(ctx, frame)
	if err != nil {
		l.failed.Add(1)
		l.log.WithFields(logrus.Fields{
			"seq":   frame.Seq,
			"error": err.Error(),
		}).Error("One-shot detection failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	if sink != nil {
		sink.Present(frame, detections)
		l.presented.Add(1)
	}

	return detections, nil
}

func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:     l.ticks.Load(),
		Submitted: l.submitted.Load(),
		Dropped:   l.dropped.Load(),
		Failed:    l.failed.Load(),
		Presented: l.presented.Load(),
	}
}
