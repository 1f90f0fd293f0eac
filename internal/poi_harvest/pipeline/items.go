package pipeline

import "poi-harvest/internal/poi_harvest/model"

type City struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lng  float64 `yaml:"lng" json:"lng"`
}

// AreaItems enumerates cities × categories, city-major. The order depends
// only on the inputs, which keeps resume cursors valid across processes.
func AreaItems(cities []City, categories []string, radius int) []model.WorkItem {
	items := make([]model.WorkItem, 0, len(cities)*len(categories))
	for _, c := range cities {
		for _, cat := range categories {
			items = append(items, model.NewAreaQuery(c.Name, c.Lat, c.Lng, radius, cat))
		}
	}
	return items
}

// DetailItems turns a prior artifact into detail lookups in stored order.
// Entities without an id and repeated ids are skipped.
func DetailItems(entities []model.Entity) []model.WorkItem {
	seen := make(map[string]struct{}, len(entities))
	items := make([]model.WorkItem, 0, len(entities))
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		items = append(items, model.NewDetailLookup(e.Partition, e.Category, e.ID))
	}
	return items
}
