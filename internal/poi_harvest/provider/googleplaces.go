package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
)

const DefaultGooglePlacesURL = "https://maps.googleapis.com/maps/api/place"

// detailFields keeps the details call to the fields the Entity carries.
const detailFields = "place_id,name,geometry,types,rating,user_ratings_total,photos,business_status,formatted_address,vicinity,url,editorial_summary"

// GooglePlaces talks to the Places nearbysearch and details endpoints.
type GooglePlaces struct {
	BaseURL string
	APIKey  string
	client  getter
	log     *zap.Logger
}

func NewGooglePlaces(opts Options, client *http.Client) *GooglePlaces {
	base := opts.BaseURL
	if base == "" {
		base = DefaultGooglePlacesURL
	}
	return &GooglePlaces{
		BaseURL: strings.TrimRight(base, "/"),
		APIKey:  opts.APIKey,
		client:  getter{HTTPClient: client, Log: opts.Log},
		log:     opts.Log,
	}
}

func (g *GooglePlaces) Name() string { return GooglePlacesName }

type gpLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type gpPhoto struct {
	PhotoReference   string   `json:"photo_reference"`
	HTMLAttributions []string `json:"html_attributions"`
}

type gpPlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Geometry struct {
		Location gpLocation `json:"location"`
	} `json:"geometry"`
	Types            []string  `json:"types"`
	Rating           float64   `json:"rating"`
	UserRatingsTotal int       `json:"user_ratings_total"`
	Photos           []gpPhoto `json:"photos"`
	BusinessStatus   string    `json:"business_status"`
	Vicinity         string    `json:"vicinity"`
	FormattedAddress string    `json:"formatted_address"`
	URL              string    `json:"url"`
	EditorialSummary struct {
		Overview string `json:"overview"`
	} `json:"editorial_summary"`
}

type gpNearbyResponse struct {
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message"`
	Results       []gpPlace `json:"results"`
	NextPageToken string    `json:"next_page_token"`
}

type gpDetailResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Result       gpPlace `json:"result"`
}

func (g *GooglePlaces) Fetch(ctx context.Context, item model.WorkItem, token string) (model.Page, error) {
	if item.Kind == model.KindDetail {
		return g.details(ctx, item)
	}
	return g.nearby(ctx, item, token)
}

func (g *GooglePlaces) nearby(ctx context.Context, item model.WorkItem, token string) (model.Page, error) {
	params := map[string]string{
		"location":  fmt.Sprintf("%g,%g", item.Lat, item.Lng),
		"radius":    strconv.Itoa(item.Radius),
		"type":      item.Category,
		"key":       g.APIKey,
		"pagetoken": token,
	}
	code, body, err := g.client.get(ctx, g.BaseURL+"/nearbysearch/json", params)
	if err != nil {
		return model.Page{}, err
	}
	if page, ok, err := httpStatusPage(code, body); ok {
		return page, err
	}

	var resp gpNearbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Page{}, &model.TransientError{Err: fmt.Errorf("decode nearbysearch: %w", err)}
	}
	g.log.Debug("nearbysearch response",
		zap.String("item", item.String()),
		zap.String("status", resp.Status),
		zap.Int("results", len(resp.Results)),
	)

	page, err := googleStatusPage(resp.Status, resp.ErrorMessage)
	if err != nil || page.Status == model.StatusRateLimited || page.Status == model.StatusTerminal {
		return page, err
	}
	page.NextToken = resp.NextPageToken
	for _, p := range resp.Results {
		page.Entities = append(page.Entities, p.entity())
	}
	if len(page.Entities) == 0 {
		page.Status = model.StatusEmpty
	}
	return page, nil
}

func (g *GooglePlaces) details(ctx context.Context, item model.WorkItem) (model.Page, error) {
	params := map[string]string{
		"place_id": item.EntityID,
		"fields":   detailFields,
		"key":      g.APIKey,
	}
	code, body, err := g.client.get(ctx, g.BaseURL+"/details/json", params)
	if err != nil {
		return model.Page{}, err
	}
	if page, ok, err := httpStatusPage(code, body); ok {
		return page, err
	}

	var resp gpDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Page{}, &model.TransientError{Err: fmt.Errorf("decode details: %w", err)}
	}
	page, err := googleStatusPage(resp.Status, resp.ErrorMessage)
	if err != nil || page.Status != model.StatusOK {
		return page, err
	}
	if resp.Result.PlaceID == "" {
		resp.Result.PlaceID = item.EntityID
	}
	page.Entities = []model.Entity{resp.Result.entity()}
	return page, nil
}

// googleStatusPage maps the Places "status" field. UNKNOWN_ERROR is a
// server-side hiccup and worth retrying.
func googleStatusPage(status, message string) (model.Page, error) {
	switch status {
	case "OK":
		return model.Page{Status: model.StatusOK, Code: status}, nil
	case "ZERO_RESULTS":
		return model.Page{Status: model.StatusEmpty, Code: status}, nil
	case "OVER_QUERY_LIMIT":
		return model.Page{Status: model.StatusRateLimited, Code: status, Message: message}, nil
	case "UNKNOWN_ERROR":
		return model.Page{}, &model.TransientError{Err: fmt.Errorf("places status %s: %s", status, message)}
	default:
		// REQUEST_DENIED, INVALID_REQUEST, NOT_FOUND and anything unrecognised.
		if message == "" {
			message = "Unknown error"
		}
		return model.Page{Status: model.StatusTerminal, Code: status, Message: message}, nil
	}
}

func (p gpPlace) entity() model.Entity {
	e := model.Entity{
		ID:   p.PlaceID,
		Name: p.Name,
		Coordinates: model.Coordinates{
			Lat: p.Geometry.Location.Lat,
			Lng: p.Geometry.Location.Lng,
		},
		Tags:        p.Types,
		Rating:      p.Rating,
		RatingCount: p.UserRatingsTotal,
		Popularity:  model.PopularityOf(p.Rating, p.UserRatingsTotal),
		Description: p.EditorialSummary.Overview,
		Address:     p.FormattedAddress,
		Status:      p.BusinessStatus,
		Source:      GooglePlacesName,
		URL:         p.URL,
	}
	if e.Address == "" {
		e.Address = p.Vicinity
	}
	for _, ph := range p.Photos {
		e.Media = append(e.Media, model.Media{Reference: ph.PhotoReference, Attribution: ph.HTMLAttributions})
	}
	return e
}
