package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
)

const (
	GooglePlacesName = "google_places"
	OpenTripMapName  = "opentripmap"
)

// Provider adapts one places API to the strict Page view.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, item model.WorkItem, token string) (model.Page, error)
}

type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Limit        int      // max results per area query, where the API takes one
	ExcludeKinds []string // entities tagged with any of these are dropped
	Log          *zap.Logger
}

// New builds the adapter registered under name.
func New(name string, opts Options) (Provider, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}

	switch name {
	case GooglePlacesName, "":
		return NewGooglePlaces(opts, client), nil
	case OpenTripMapName:
		return NewOpenTripMap(opts, client), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
