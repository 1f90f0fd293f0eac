package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
)

const (
	DefaultOpenTripMapURL = "https://api.opentripmap.com/0.1/en"
	defaultOTMLimit       = 1000
)

// OpenTripMap has no pagination: one radius query returns up to Limit
// places, ranked by the provider.
type OpenTripMap struct {
	BaseURL      string
	APIKey       string
	Limit        int
	ExcludeKinds []string
	client       getter
	log          *zap.Logger
}

func NewOpenTripMap(opts Options, client *http.Client) *OpenTripMap {
	base := opts.BaseURL
	if base == "" {
		base = DefaultOpenTripMapURL
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultOTMLimit
	}
	return &OpenTripMap{
		BaseURL:      strings.TrimRight(base, "/"),
		APIKey:       opts.APIKey,
		Limit:        limit,
		ExcludeKinds: opts.ExcludeKinds,
		client:       getter{HTTPClient: client, Log: opts.Log},
		log:          opts.Log,
	}
}

func (o *OpenTripMap) Name() string { return OpenTripMapName }

// otmRate is either a number or a string such as "3h" (heritage flag).
type otmRate float64

func (r *otmRate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimRight(strings.TrimSpace(s), "h")
		if s == "" {
			*r = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("rate %q: %w", s, err)
		}
		*r = otmRate(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = otmRate(f)
	return nil
}

type otmPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type otmPlace struct {
	XID   string   `json:"xid"`
	Name  string   `json:"name"`
	Rate  otmRate  `json:"rate"`
	Kinds string   `json:"kinds"`
	Point otmPoint `json:"point"`
}

type otmPreview struct {
	Source string `json:"source"`
}

type otmExtracts struct {
	Text string `json:"text"`
}

type otmDetail struct {
	otmPlace
	Address           map[string]string `json:"address"`
	Wikipedia         string            `json:"wikipedia"`
	OTM               string            `json:"otm"`
	Preview           otmPreview        `json:"preview"`
	WikipediaExtracts otmExtracts       `json:"wikipedia_extracts"`
	Error             string            `json:"error"`
}

func (o *OpenTripMap) Fetch(ctx context.Context, item model.WorkItem, _ string) (model.Page, error) {
	if item.Kind == model.KindDetail {
		return o.detail(ctx, item)
	}
	return o.radius(ctx, item)
}

func (o *OpenTripMap) radius(ctx context.Context, item model.WorkItem) (model.Page, error) {
	params := map[string]string{
		"lon":    strconv.FormatFloat(item.Lng, 'f', -1, 64),
		"lat":    strconv.FormatFloat(item.Lat, 'f', -1, 64),
		"radius": strconv.Itoa(item.Radius),
		"limit":  strconv.Itoa(o.Limit),
		"kinds":  item.Category,
		"format": "json",
		"apikey": o.APIKey,
	}
	code, body, err := o.client.get(ctx, o.BaseURL+"/places/radius", params)
	if err != nil {
		return model.Page{}, err
	}
	if page, ok, err := httpStatusPage(code, body); ok {
		return page, err
	}

	var places []otmPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return model.Page{}, &model.TransientError{Err: fmt.Errorf("decode radius: %w", err)}
	}

	page := model.Page{Status: model.StatusOK, Code: strconv.Itoa(code)}
	skipped := 0
	for _, p := range places {
		if o.excluded(p.Kinds) {
			skipped++
			continue
		}
		page.Entities = append(page.Entities, p.entity())
	}
	if len(page.Entities) == 0 {
		page.Status = model.StatusEmpty
	}
	o.log.Debug("radius response",
		zap.String("item", item.String()),
		zap.Int("results", len(places)),
		zap.Int("excluded", skipped),
	)
	return page, nil
}

func (o *OpenTripMap) detail(ctx context.Context, item model.WorkItem) (model.Page, error) {
	params := map[string]string{"apikey": o.APIKey}
	code, body, err := o.client.get(ctx, o.BaseURL+"/places/xid/"+url.PathEscape(item.EntityID), params)
	if err != nil {
		return model.Page{}, err
	}
	if page, ok, err := httpStatusPage(code, body); ok {
		return page, err
	}

	var d otmDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return model.Page{}, &model.TransientError{Err: fmt.Errorf("decode xid: %w", err)}
	}
	if d.Error != "" {
		return model.Page{Status: model.StatusTerminal, Code: strconv.Itoa(code), Message: d.Error}, nil
	}
	if d.XID == "" {
		d.XID = item.EntityID
	}

	e := d.otmPlace.entity()
	e.Description = d.WikipediaExtracts.Text
	e.Address = formatAddress(d.Address)
	e.URL = d.Wikipedia
	if e.URL == "" {
		e.URL = d.OTM
	}
	if d.Preview.Source != "" {
		e.Media = []model.Media{{Reference: d.Preview.Source}}
	}
	return model.Page{Status: model.StatusOK, Code: strconv.Itoa(code), Entities: []model.Entity{e}}, nil
}

func (o *OpenTripMap) excluded(kinds string) bool {
	kinds = strings.ToLower(kinds)
	for _, k := range o.ExcludeKinds {
		if k != "" && strings.Contains(kinds, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (p otmPlace) entity() model.Entity {
	var tags []string
	for _, k := range strings.Split(p.Kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			tags = append(tags, k)
		}
	}
	return model.Entity{
		ID:          p.XID,
		Name:        p.Name,
		Coordinates: model.Coordinates{Lat: p.Point.Lat, Lng: p.Point.Lon},
		Tags:        tags,
		Rating:      float64(p.Rate),
		Popularity:  model.PopularityOf(float64(p.Rate), 0),
		Source:      OpenTripMapName,
	}
}

func formatAddress(a map[string]string) string {
	if len(a) == 0 {
		return ""
	}
	street := strings.TrimSpace(a["road"] + " " + a["house_number"])
	var parts []string
	for _, s := range []string{street, a["postcode"], a["city"], a["country"]} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
