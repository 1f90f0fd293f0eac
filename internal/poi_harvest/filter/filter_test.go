package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-harvest/internal/poi_harvest/filter"
	"poi-harvest/internal/poi_harvest/model"
)

func TestTopByReviews(t *testing.T) {
	in := []model.Entity{
		{ID: "a", Partition: "Paris", RatingCount: 60},
		{ID: "b", Partition: "Paris", RatingCount: 10},
		{ID: "c", Partition: "Paris", RatingCount: 500},
		{ID: "d", Partition: "Paris", RatingCount: 60},
		{ID: "e", Partition: "Rome", RatingCount: 49},
		{ID: "f", Partition: "Rome", RatingCount: 51},
	}

	got := filter.TopByReviews(in, 50, 2)
	require.Len(t, got, 2)

	ids := func(l []model.Entity) []string {
		var out []string
		for _, e := range l {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a"}, ids(got["Paris"]), "ties keep input order")
	assert.Equal(t, []string{"f"}, ids(got["Rome"]))
	assert.Equal(t, 3, filter.Count(got))
}

func TestTopByReviewsKeepsEmptyPartitions(t *testing.T) {
	got := filter.TopByReviews([]model.Entity{{ID: "x", Partition: "Oslo", RatingCount: 3}}, filter.DefaultMinReviews, 0)
	assert.Contains(t, got, "Oslo")
	assert.Empty(t, got["Oslo"])
}
