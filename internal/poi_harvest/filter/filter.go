// Package filter selects the best-reviewed entities of each partition from a
// finished harvest.
package filter

import (
	"sort"

	"poi-harvest/internal/poi_harvest/model"
)

const (
	DefaultMinReviews = 50
	DefaultTopN       = 200
)

// TopByReviews drops entities with fewer than minReviews ratings and keeps
// the topN with the most ratings per partition. Ties keep input order.
func TopByReviews(entities []model.Entity, minReviews, topN int) map[string][]model.Entity {
	if topN <= 0 {
		topN = DefaultTopN
	}
	out := make(map[string][]model.Entity)
	for _, e := range entities {
		if _, ok := out[e.Partition]; !ok {
			out[e.Partition] = []model.Entity{}
		}
		if e.RatingCount >= minReviews {
			out[e.Partition] = append(out[e.Partition], e)
		}
	}
	for part, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].RatingCount > list[j].RatingCount
		})
		if len(list) > topN {
			list = list[:topN]
		}
		out[part] = list
	}
	return out
}

// Count sums the kept entities across partitions.
func Count(byPartition map[string][]model.Entity) int {
	n := 0
	for _, l := range byPartition {
		n += len(l)
	}
	return n
}
