package analysisRepository

import (
	"context"

	"FaceVision/internal/entity"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "analyses"

type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, record entity.Analysis) (entity.Analysis, error)
	History(ctx context.Context, userID string, limit int64) ([]entity.Analysis, error)
	GetByID(ctx context.Context, userID, id string) (entity.Analysis, error)
}

func New(db *mongo.Database, log *logrus.Logger) Repository {
	return &analysisRepository{
		coll: db.Collection(CollectionName),
		log:  log,
	}
}
