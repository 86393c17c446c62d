package analysisRepository

import (
	"context"
	"sort"
	"sync"

	"FaceVision/internal/api/analysis"
	"FaceVision/internal/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryRepository keeps records in process. It backs the server when no
// MongoDB URI is configured.
type memoryRepository struct {
	mu      sync.RWMutex
	records []entity.Analysis
}

func NewMemory() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) EnsureIndexes(_ context.Context) error {
	return nil
}

func (r *memoryRepository) Create(c context.Context, record entity.Analysis) (entity.Analysis, error) {
	if err := c.Err(); err != nil {
		return entity.Analysis{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = primitive.NewObjectID().Hex()
	r.records = append(r.records, record)
	return record, nil
}

func (r *memoryRepository) History(c context.Context, userID string, limit int64) ([]entity.Analysis, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Analysis, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) GetByID(c context.Context, userID, id string) (entity.Analysis, error) {
	if err := c.Err(); err != nil {
		return entity.Analysis{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ID == id && rec.UserID == userID {
			return rec, nil
		}
	}
	return entity.Analysis{}, analysis.ErrAnalysisNotFound
}
