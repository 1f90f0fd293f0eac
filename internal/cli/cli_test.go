package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-harvest/internal/cli"
	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"POI_API_KEY", "POI_PROVIDER", "POI_PROVIDER_URL", "POI_OUTPUT_DIR",
		"MONGO_HOST", "MONGO_PASSWORD", "POSTGRES_DSN", "REDIS_ADDR", "NATS_URL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	root := cli.NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"harvest", "details", "filter", "serve", "version"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))

	harvest, _, err := root.Find([]string{"harvest"})
	require.NoError(t, err)
	for _, f := range []string{"fresh", "schedule", "with-details", "listen"} {
		assert.NotNil(t, harvest.Flags().Lookup(f), f)
	}
}

func TestVersion(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "poi-harvest version "+cli.Version)
}

func TestHarvestRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "output:\n  directory: "+dir+"\n")

	_, err := execute(t, "--config", cfg, "harvest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKey")
}

func TestFilterWritesTopPlaces(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "output:\n  directory: "+dir+"\nfilter:\n  outputFile: top.json\n")
	require.NoError(t, helper.WriteJSON(filepath.Join(dir, "places_all_cities.json"), []model.Entity{
		{ID: "a", Partition: "Paris", RatingCount: 10},
		{ID: "b", Partition: "Paris", RatingCount: 900},
		{ID: "c", Partition: "Paris", RatingCount: 400},
		{ID: "d", Partition: "Lyon", RatingCount: 3},
	}))

	out, err := execute(t, "--config", cfg, "filter", "--min-reviews", "100", "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 4 places kept across 2 cities")

	var top map[string][]model.Entity
	require.NoError(t, helper.ReadJSON(filepath.Join(dir, "top.json"), &top))
	require.Len(t, top["Paris"], 1)
	assert.Equal(t, "b", top["Paris"][0].ID)
	assert.Empty(t, top["Lyon"])
}

func googleStub(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	place := map[string]any{
		"place_id":           "p1",
		"name":               "Old Museum",
		"geometry":           map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}},
		"rating":             4.5,
		"user_ratings_total": 120,
		"types":              []string{"museum"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/nearbysearch/json"):
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": []any{place}})
		case strings.HasSuffix(r.URL.Path, "/details/json"):
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "result": place})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHarvestWithDetails(t *testing.T) {
	clearEnv(t)
	var calls atomic.Int32
	srv := googleStub(t, &calls)
	dir := t.TempDir()
	cfg := writeConfig(t, dir, `provider:
  name: google_places
  baseUrl: `+srv.URL+`
  apiKey: test-key
search:
  radius: 1000
  pageDelay: 0s
  categories: [museum, art_gallery]
cities:
  - {name: Paris, lat: 48.85, lng: 2.35}
output:
  directory: `+dir+`
`)

	out, err := execute(t, "--config", cfg, "harvest", "--with-details")
	require.NoError(t, err)
	assert.Contains(t, out, "Harvest summary")
	// two area queries plus one detail lookup for the single unique place
	assert.Equal(t, int32(3), calls.Load())

	var all []model.Entity
	require.NoError(t, helper.ReadJSON(filepath.Join(dir, "places_all_cities.json"), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "Paris", all[0].Partition)

	assert.FileExists(t, filepath.Join(dir, "places_paris.json"))
	assert.FileExists(t, filepath.Join(dir, "fetch_report.json"))
	assert.NoFileExists(t, filepath.Join(dir, "places_progress.json"))
	assert.NoFileExists(t, filepath.Join(dir, "details_progress.json"))

	details, err := filepath.Glob(filepath.Join(dir, "places_details_*.json"))
	require.NoError(t, err)
	assert.Len(t, details, 1)
}
