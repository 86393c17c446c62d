package analysisService

import (
	"context"
	"sync"
	"time"

	"FaceVision/internal/api/analysis"
	analysisRepository "FaceVision/internal/api/analysis/repository"
	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/provider"
	"FaceVision/pkg/mqtt"
	"FaceVision/pkg/redis"
	"FaceVision/pkg/storage"
	"FaceVision/pkg/utils"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

type AnalysisService interface {
	Records() RecordsDomain
	Live() LiveDomain
}

type RecordsDomain interface {
	Create(c context.Context, user entity.UserLoginData, req analysis.CreateRequest) (entity.Analysis, error)
	History(c context.Context, user entity.UserLoginData) ([]entity.Analysis, error)
	GetByID(c context.Context, user entity.UserLoginData, id string) (entity.Analysis, error)
}

type LiveDomain interface {
	Open(c context.Context, user entity.UserLoginData, category string, sink analyzer.Sink) (*LiveSession, error)
	Active(userID string) bool
}

type Config struct {
	HistoryTTL      time.Duration
	LiveFPS         int
	ProviderTimeout time.Duration
}

type analysisService struct {
	recordsDomain RecordsDomain
	liveDomain    LiveDomain
}

func (s *analysisService) Records() RecordsDomain {
	return s.recordsDomain
}

func (s *analysisService) Live() LiveDomain {
	return s.liveDomain
}

type recordsDomainImpl struct {
	log       *logrus.Logger
	repo      analysisRepository.Repository
	detector  provider.Provider
	storage   storage.IStorage
	cache     redis.IRedis
	publisher mqtt.IPublisher
	utils     utils.IUtils
	cfg       Config
	now       func() time.Time
}

type liveDomainImpl struct {
	log      *logrus.Logger
	detector provider.Provider
	cfg      Config
	clock    clock.Clock

	mu       sync.Mutex
	sessions map[string]*LiveSession
}

// New wires the analysis domains. cache and publisher may be nil.
func New(log *logrus.Logger,
	repo analysisRepository.Repository,
	detector provider.Provider,
	store storage.IStorage,
	cache redis.IRedis,
	publisher mqtt.IPublisher,
	utils utils.IUtils,
	cfg Config,
) AnalysisService {
	return &analysisService{
		recordsDomain: &recordsDomainImpl{
			log:       log,
			repo:      repo,
			detector:  detector,
			storage:   store,
			cache:     cache,
			publisher: publisher,
			utils:     utils,
			cfg:       cfg,
			now:       time.Now,
		},
		liveDomain: &liveDomainImpl{
			log:      log,
			detector: detector,
			cfg:      cfg,
			clock:    clock.New(),
			sessions: make(map[string]*LiveSession),
		},
	}
}
