package model

import "time"

type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type Media struct {
	Reference   string   `json:"reference" bson:"reference"`
	Attribution []string `json:"attribution,omitempty" bson:"attribution,omitempty"`
}

// Entity is a harvested point of interest. Identity is the provider id;
// re-fetching replaces the whole record.
type Entity struct {
	ID          string      `json:"id" bson:"_id"`
	Name        string      `json:"name" bson:"name"`
	Partition   string      `json:"partition" bson:"partition"`
	Category    string      `json:"category,omitempty" bson:"category,omitempty"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
	Tags        []string    `json:"tags,omitempty" bson:"tags,omitempty"`
	Rating      float64     `json:"rating" bson:"rating"`
	RatingCount int         `json:"ratingCount" bson:"ratingCount"`
	Popularity  float64     `json:"popularity" bson:"popularity"`
	Media       []Media     `json:"media,omitempty" bson:"media,omitempty"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	Address     string      `json:"address,omitempty" bson:"address,omitempty"`
	Status      string      `json:"status,omitempty" bson:"status,omitempty"`
	Source      string      `json:"source" bson:"source"`
	URL         string      `json:"url,omitempty" bson:"url,omitempty"`
	FetchedAt   time.Time   `json:"fetchedAt" bson:"fetchedAt"`
}

// PopularityOf is rating × rating count. Providers that expose no count
// (count == 0) rank by the rating alone.
func PopularityOf(rating float64, count int) float64 {
	if count <= 0 {
		return rating
	}
	return rating * float64(count)
}

// PageStatus classifies a decoded provider page.
type PageStatus int

const (
	StatusOK PageStatus = iota
	StatusEmpty
	StatusRateLimited
	StatusTerminal
)

func (s PageStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusRateLimited:
		return "rate_limited"
	case StatusTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Page is the strict view of one provider response. Adapters build it; nothing
// downstream reads raw response fields.
type Page struct {
	Status    PageStatus
	Entities  []Entity
	NextToken string // empty means exhausted
	Code      string // provider status, e.g. OVER_QUERY_LIMIT or "429"
	Message   string
}
