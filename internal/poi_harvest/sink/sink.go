// Package sink pushes the final entity set into external stores.
package sink

import (
	"context"

	"poi-harvest/internal/poi_harvest/model"
)

// Sink receives the full, deduplicated entity list once per run. Writes are
// upserts keyed by entity id, so re-running a harvest replaces records.
type Sink interface {
	Name() string
	Write(ctx context.Context, entities []model.Entity) (int, error)
}

func chunks(entities []model.Entity, size int) [][]model.Entity {
	if size <= 0 {
		size = len(entities)
	}
	var out [][]model.Entity
	for i := 0; i < len(entities); i += size {
		out = append(out, entities[i:min(i+size, len(entities))])
	}
	return out
}
