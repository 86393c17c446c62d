package analysisRepository

import (
	"context"
	"errors"
	"time"

	"FaceVision/internal/api/analysis"
	"FaceVision/internal/entity"
	contextPkg "FaceVision/pkg/context"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AnalysisDB struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Type      string             `bson:"type"`
	ImageURL  string             `bson:"imageUrl"`
	Results   bson.M             `bson:"results,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type analysisRepository struct {
	coll *mongo.Collection
	log  *logrus.Logger
}

func (r *analysisRepository) EnsureIndexes(c context.Context) error {
	_, err := r.coll.Indexes().CreateOne(c, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"collection": CollectionName,
			"error":      err.Error(),
		}).Error("Failed to create analysis history index")
	}
	return err
}

func (r *analysisRepository) Create(c context.Context, record entity.Analysis) (entity.Analysis, error) {
	requestID := contextPkg.GetRequestID(c)

	doc := makeDocument(record)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(c, doc); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to insert analysis")
		return entity.Analysis{}, err
	}

	return makeAnalysis(doc), nil
}

func (r *analysisRepository) History(c context.Context, userID string, limit int64) ([]entity.Analysis, error) {
	requestID := contextPkg.GetRequestID(c)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(c, bson.M{"userId": userID}, opts)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to query analysis history")
		return nil, err
	}
	defer cursor.Close(c)

	var docs []AnalysisDB
	if err := cursor.All(c, &docs); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to decode analysis history")
		return nil, err
	}

	records := make([]entity.Analysis, 0, len(docs))
	for _, doc := range docs {
		records = append(records, makeAnalysis(doc))
	}
	return records, nil
}

// GetByID only finds records owned by userID. A malformed id is reported as
// not found.
func (r *analysisRepository) GetByID(c context.Context, userID, id string) (entity.Analysis, error) {
	requestID := contextPkg.GetRequestID(c)

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entity.Analysis{}, analysis.ErrAnalysisNotFound
	}

	var doc AnalysisDB
	err = r.coll.FindOne(c, bson.M{"_id": oid, "userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.Analysis{}, analysis.ErrAnalysisNotFound
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get analysis")
		return entity.Analysis{}, err
	}

	return makeAnalysis(doc), nil
}

func makeDocument(record entity.Analysis) AnalysisDB {
	doc := AnalysisDB{
		UserID:    record.UserID,
		Type:      string(record.Type),
		ImageURL:  record.ImageURL,
		CreatedAt: record.CreatedAt.UTC(),
		UpdatedAt: record.UpdatedAt.UTC(),
	}
	if record.Results != nil {
		doc.Results = bson.M(record.Results)
	}
	if oid, err := primitive.ObjectIDFromHex(record.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func makeAnalysis(doc AnalysisDB) entity.Analysis {
	record := entity.Analysis{
		UserID:    doc.UserID,
		Type:      entity.AnalysisType(doc.Type),
		ImageURL:  doc.ImageURL,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if !doc.ID.IsZero() {
		record.ID = doc.ID.Hex()
	}
	if doc.Results != nil {
		record.Results, _ = plain(doc.Results).(map[string]interface{})
	}
	return record
}

// plain converts decoded BSON containers into the maps and slices the JSON
// encoder understands.
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
