package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestReplaceModelsUpsertByID(t *testing.T) {
	ops := replaceModels(sampleEntities("a", "b"))
	require.Len(t, ops, 2)

	op, ok := ops[1].(*mongo.ReplaceOneModel)
	require.True(t, ok)
	assert.Equal(t, bson.M{"_id": "b"}, op.Filter)
	require.NotNil(t, op.Upsert)
	assert.True(t, *op.Upsert)
}

func TestQueryNormalize(t *testing.T) {
	q := Query{Page: 0, Limit: 1000}.normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, maxPageLimit, q.Limit)

	assert.Equal(t, 20, Query{}.normalize().Limit)
}

func TestQueryFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, Query{}.filter())
	assert.Equal(t, bson.M{"partition": "Rome", "category": "museum"}, Query{Partition: "Rome", Category: "museum"}.filter())
}

func TestChunks(t *testing.T) {
	parts := chunks(sampleEntities("a", "b", "c", "d", "e"), 2)
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 1)
	assert.Len(t, chunks(sampleEntities("a"), 0), 1)
	assert.Empty(t, chunks(nil, 10))
}

func TestWrittenCountsUnchangedReplacements(t *testing.T) {
	// 2 new ids, 3 existing ids of which only 1 changed
	res := &mongo.BulkWriteResult{UpsertedCount: 2, MatchedCount: 3, ModifiedCount: 1}
	assert.Equal(t, 5, written(res))
}
