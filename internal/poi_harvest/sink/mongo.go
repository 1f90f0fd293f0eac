package sink

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
)

const maxPageLimit = 200

type Mongo struct {
	Coll      *mongo.Collection
	BatchSize int
	Log       *zap.Logger
}

func NewMongo(coll *mongo.Collection, log *zap.Logger) *Mongo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mongo{Coll: coll, BatchSize: 500, Log: log}
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Write(ctx context.Context, entities []model.Entity) (int, error) {
	stored := 0
	for _, batch := range chunks(entities, m.BatchSize) {
		opts := options.BulkWrite().SetOrdered(false)
		res, err := m.Coll.BulkWrite(ctx, replaceModels(batch), opts)
		if err != nil {
			return stored, fmt.Errorf("mongo bulk write: %w", err)
		}
		stored += written(res)
		m.Log.Debug("Bulk operation completed",
			zap.Int64("upserted", res.UpsertedCount),
			zap.Int64("modified", res.ModifiedCount),
			zap.Int64("matched", res.MatchedCount),
		)
	}
	return stored, nil
}

// written counts every entity the batch stored: inserted, replaced with
// changes, or replaced by an identical document.
func written(res *mongo.BulkWriteResult) int {
	return int(res.UpsertedCount + res.MatchedCount)
}

func replaceModels(entities []model.Entity) []mongo.WriteModel {
	ops := make([]mongo.WriteModel, 0, len(entities))
	for _, e := range entities {
		ops = append(ops, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": e.ID}).
			SetReplacement(e).
			SetUpsert(true))
	}
	return ops
}

// Query selects a page of stored entities, most popular first.
type Query struct {
	Partition string
	Category  string
	Page      int // 1-based
	Limit     int
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	return q
}

func (q Query) filter() bson.M {
	f := bson.M{}
	if q.Partition != "" {
		f["partition"] = q.Partition
	}
	if q.Category != "" {
		f["category"] = q.Category
	}
	return f
}

// Find returns one page of entities and the total match count.
func (m *Mongo) Find(ctx context.Context, q Query) ([]model.Entity, int64, error) {
	q = q.normalize()
	filter := q.filter()

	total, err := m.Coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "popularity", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	cur, err := m.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find entities: %w", err)
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		if err := cur.Close(ctx); err != nil {
			m.Log.Warn("Failed to close cursor", zap.Error(err))
		}
	}(cur, ctx)

	out := make([]model.Entity, 0, q.Limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode entities: %w", err)
	}
	return out, total, nil
}
