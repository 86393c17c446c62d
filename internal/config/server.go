package config

import (
	"context"
	"fmt"

	"FaceVision/database/mongo"
	"FaceVision/database/postgres"
	analysisHandler "FaceVision/internal/api/analysis/handler"
	analysisRepository "FaceVision/internal/api/analysis/repository"
	analysisService "FaceVision/internal/api/analysis/service"
	usersHandler "FaceVision/internal/api/users/handler"
	usersRepository "FaceVision/internal/api/users/repository"
	usersService "FaceVision/internal/api/users/service"
	"FaceVision/internal/middleware"
	"FaceVision/internal/vision/provider"
	"FaceVision/pkg/bcrypt"
	"FaceVision/pkg/mqtt"
	"FaceVision/pkg/redis"
	"FaceVision/pkg/storage"
	"FaceVision/pkg/sysstats"
	"FaceVision/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	mongoDriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/multierr"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	env          *Env
	db           *sqlx.DB
	mongoDB      *mongoDriver.Database
	analysisRepo analysisRepository.Repository
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	bcryptUtils  bcrypt.IBcrypt
	handlers     []handler
	redisServer  redis.IRedis
	storage      storage.IStorage
	publisher    mqtt.IPublisher
	detector     provider.Provider
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, multierr.Combine(fmt.Errorf("failed to apply option: %w", err), server.closeResources(context.Background()))
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New(s.env.DBDriver, s.env.DBDSN)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithMongo stores analysis records in MongoDB, or in memory when no URI is
// configured.
func WithMongo(ctx context.Context) ServerOption {
	return func(s *Server) error {
		if s.env.MongoURI == "" {
			s.log.Warn("MONGO_URI is empty, analysis records are kept in memory")
			s.analysisRepo = analysisRepository.NewMemory()
			return nil
		}

		db, err := mongo.New(ctx, s.env.MongoURI, s.env.MongoDatabase)
		if err != nil {
			s.log.Errorf("Failed to connect to MongoDB: %v", err)
			return fmt.Errorf("failed to create mongo connection: %w", err)
		}
		s.mongoDB = db

		repo := analysisRepository.New(db, s.log)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create analysis indexes: %w", err)
		}
		s.analysisRepo = repo
		return nil
	}
}

// WithRedis enables the history cache unless REDIS_ADDRESS is empty.
func WithRedis() ServerOption {
	return func(s *Server) error {
		if s.env.RedisAddress == "" {
			s.log.Info("Redis is disabled, history is read from the store every time")
			return nil
		}
		s.redisServer = redis.New(redis.Config{
			Address:  s.env.RedisAddress,
			Password: s.env.RedisPassword,
			DB:       s.env.RedisDB,
		}, s.log)
		return nil
	}
}

func WithStorage() ServerOption {
	return func(s *Server) error {
		store, err := storage.New(storage.Config{
			Driver:          s.env.StorageDriver,
			Dir:             s.env.UploadDir,
			PublicURL:       "/uploads",
			Region:          s.env.AWSRegion,
			Bucket:          s.env.AWSBucketName,
			AccessKeyID:     s.env.AWSAccessKeyID,
			SecretAccessKey: s.env.AWSSecretAccessKey,
			Endpoint:        s.env.AWSEndpoint,
		})
		if err != nil {
			s.log.Errorf("Failed to initialize image storage: %v", err)
			return fmt.Errorf("failed to create storage: %w", err)
		}
		s.storage = store
		return nil
	}
}

func WithMQTT() ServerOption {
	return func(s *Server) error {
		publisher, err := mqtt.New(mqtt.Config{
			Enabled:     s.env.MQTTEnabled,
			Broker:      s.env.MQTTBroker,
			Port:        s.env.MQTTPort,
			ClientID:    s.env.MQTTClientID,
			Username:    s.env.MQTTUsername,
			Password:    s.env.MQTTPassword,
			TopicPrefix: s.env.MQTTTopicPrefix,
		}, s.log)
		if err != nil {
			s.log.Errorf("Failed to connect to MQTT broker: %v", err)
			return fmt.Errorf("failed to create MQTT publisher: %w", err)
		}
		s.publisher = publisher
		return nil
	}
}

func WithProvider(ctx context.Context) ServerOption {
	return func(s *Server) error {
		detector, err := provider.New(ctx, provider.Config{
			Name:         s.env.DetectionProvider,
			InferenceURL: s.env.InferenceWSURL,
			GeminiAPIKey: s.env.GeminiAPIKey,
			GeminiModel:  s.env.GeminiModel,
			CascadeFile:  s.env.CascadeFile,
			MaxWidth:     s.env.ProviderMaxWidth,
		}, s.log)
		if err != nil {
			s.log.Errorf("Failed to create detection provider: %v", err)
			return fmt.Errorf("failed to create detection provider: %w", err)
		}
		s.detector = detector
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(cors.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	if local, ok := s.storage.(*storage.Local); ok {
		s.engine.Static("/uploads", local.Dir())
	}

	// Users Domain
	usersRepo := usersRepository.New(s.db, s.log)
	usersServices := usersService.New(s.log, usersRepo, s.bcryptUtils, s.utils)
	usersHandlers := usersHandler.New(s.log, usersServices, s.validator, s.middleware)

	// Analysis Domain
	analysisServices := analysisService.New(s.log, s.analysisRepo, s.detector, s.storage, s.redisServer, s.publisher, s.utils, analysisService.Config{
		HistoryTTL:      s.env.HistoryTTL,
		LiveFPS:         s.env.LiveFPS,
		ProviderTimeout: s.env.ProviderTimeout,
	})
	analysisHandlers := analysisHandler.New(s.log, analysisServices, s.middleware)

	s.handlers = append(s.handlers, usersHandlers, analysisHandlers)
}

func (s *Server) Run() error {
	s.mountRoutes()
	return s.engine.Listen(fmt.Sprintf(":%s", s.env.AppPort))
}

func (s *Server) mountRoutes() {
	router := s.engine.Group("/api")

	for _, h := range s.handlers {
		h.Start(router)
	}
}

// Shutdown stops accepting requests and closes every backing resource.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.engine != nil {
		err = s.engine.ShutdownWithContext(ctx)
	}
	return multierr.Append(err, s.closeResources(ctx))
}

func (s *Server) closeResources(ctx context.Context) error {
	var err error

	if s.detector != nil {
		err = multierr.Append(err, provider.Close(s.detector))
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redisServer != nil {
		err = multierr.Append(err, s.redisServer.Close())
	}
	if s.mongoDB != nil {
		err = multierr.Append(err, s.mongoDB.Client().Disconnect(ctx))
	}
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
			"system":  sysstats.Collect(),
		})
	})
}
