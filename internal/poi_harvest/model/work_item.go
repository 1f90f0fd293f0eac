package model

import (
	"fmt"
	"strings"
)

type ItemKind string

const (
	KindArea   ItemKind = "area"
	KindDetail ItemKind = "detail"
)

// WorkItem is one unit of fetch work. Values are never mutated after creation.
type WorkItem struct {
	Kind      ItemKind `json:"kind"`
	Partition string   `json:"partition"`          // city label
	Category  string   `json:"category,omitempty"` // provider type / kind tag
	Lat       float64  `json:"lat,omitempty"`
	Lng       float64  `json:"lng,omitempty"`
	Radius    int      `json:"radius,omitempty"` // meters
	EntityID  string   `json:"entityId,omitempty"`
}

// NewAreaQuery builds an area+category query for one city.
func NewAreaQuery(city string, lat, lng float64, radius int, category string) WorkItem {
	return WorkItem{
		Kind:      KindArea,
		Partition: city,
		Category:  category,
		Lat:       lat,
		Lng:       lng,
		Radius:    radius,
	}
}

// NewDetailLookup builds a single-entity detail fetch. partition and category
// are carried over from the entity the id came from so usage, output and
// stored records stay grouped the way the area phase found them.
func NewDetailLookup(partition, category, id string) WorkItem {
	return WorkItem{
		Kind:      KindDetail,
		Partition: partition,
		Category:  category,
		EntityID:  id,
	}
}

// Key identifies the item within a run. It must be stable across processes
// because the resume cursor is stored as a key.
func (w WorkItem) Key() string {
	if w.Kind == KindDetail {
		return string(KindDetail) + "|" + w.EntityID
	}
	return strings.Join([]string{string(KindArea), w.Partition, w.Category}, "|")
}

// SubLabel is the usage label under the partition: the category for area
// queries, the entity id for detail lookups.
func (w WorkItem) SubLabel() string {
	if w.Kind == KindDetail {
		return w.EntityID
	}
	return w.Category
}

// UsageCategory is the label counted in callsByCategory.
func (w WorkItem) UsageCategory() string {
	if w.Kind == KindDetail {
		return string(KindDetail)
	}
	return w.Category
}

func (w WorkItem) String() string {
	if w.Kind == KindDetail {
		return fmt.Sprintf("detail %s (%s)", w.EntityID, w.Partition)
	}
	return fmt.Sprintf("%s/%s", w.Partition, w.Category)
}
