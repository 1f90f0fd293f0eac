// Package config loads the harvester configuration: YAML file first, then
// .env and process environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Name    string        `yaml:"name"` // google_places | opentripmap
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	Radius       int           `yaml:"radius"` // meters
	MaxPages     int           `yaml:"maxPages"`
	PageDelay    time.Duration `yaml:"pageDelay"`
	Categories   []string      `yaml:"categories"`
	ExcludeKinds []string      `yaml:"excludeKinds"`
	Limit        int           `yaml:"limit"`
}

type City struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

type FetchConfig struct {
	MaxAttempts          int           `yaml:"maxAttempts"`
	BaseDelay            time.Duration `yaml:"baseDelay"`
	MaxDelay             time.Duration `yaml:"maxDelay"`
	MaxRateLimitAttempts int           `yaml:"maxRateLimitAttempts"`
	RatePerSecond        int           `yaml:"ratePerSecond"`
	Limiter              string        `yaml:"limiter"` // window | bucket
	Concurrency          int           `yaml:"concurrency"`
	DetailConcurrency    int           `yaml:"detailConcurrency"`
}

type OutputConfig struct {
	Directory       string `yaml:"directory"`
	ProgressFile    string `yaml:"progressFile"`
	FinalFile       string `yaml:"finalFile"`
	ReportFile      string `yaml:"reportFile"`
	PartitionPrefix string `yaml:"partitionPrefix"`

	DetailProgressFile    string `yaml:"detailProgressFile"`
	DetailFinalFile       string `yaml:"detailFinalFile"`
	DetailReportFile      string `yaml:"detailReportFile"`
	DetailPartitionPrefix string `yaml:"detailPartitionPrefix"`
	DetailTimestamped     bool   `yaml:"detailTimestamped"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DedupConfig struct {
	Backend string      `yaml:"backend"` // memory | redis
	Redis   RedisConfig `yaml:"redis"`
}

// MongoConfig enables the Mongo sink and the API store when Host is set.
type MongoConfig struct {
	Host       string `yaml:"host"`
	DBName     string `yaml:"dbname"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthSource string `yaml:"authSource"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batchSize"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type FilterConfig struct {
	MinReviews int    `yaml:"minReviews"`
	TopN       int    `yaml:"topN"`
	OutputFile string `yaml:"outputFile"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Cities   []City         `yaml:"cities"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Output   OutputConfig   `yaml:"output"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	NATS     NATSConfig     `yaml:"nats"`
	Filter   FilterConfig   `yaml:"filter"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// Default mirrors the settings the original fetch scripts ran with.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:    "google_places",
			Timeout: 10 * time.Second,
		},
		Search: SearchConfig{
			Radius:       5000,
			MaxPages:     3,
			PageDelay:    2 * time.Second,
			Categories:   append([]string(nil), DefaultCategories...),
			ExcludeKinds: []string{"industrial_facilities"},
			Limit:        1000,
		},
		Cities: append([]City(nil), DefaultCities...),
		Fetch: FetchConfig{
			MaxAttempts:          3,
			BaseDelay:            2 * time.Second,
			MaxDelay:             60 * time.Second,
			MaxRateLimitAttempts: 5,
			RatePerSecond:        5,
			Limiter:              "window",
			Concurrency:          2,
			DetailConcurrency:    5,
		},
		Output: OutputConfig{
			Directory:             "data/places",
			ProgressFile:          "places_progress.json",
			FinalFile:             "places_all_cities.json",
			ReportFile:            "fetch_report.json",
			PartitionPrefix:       "places_",
			DetailProgressFile:    "details_progress.json",
			DetailFinalFile:       "places_details.json",
			DetailReportFile:      "details_report.json",
			DetailPartitionPrefix: "details_",
			DetailTimestamped:     true,
		},
		Dedup: DedupConfig{Backend: "memory"},
		Mongo: MongoConfig{
			DBName:     "poi_harvest",
			AuthSource: "admin",
			Collection: "places",
		},
		Postgres: PostgresConfig{Table: "places", BatchSize: 200},
		NATS:     NATSConfig{Subject: "harvest.item.completed"},
		Filter: FilterConfig{
			MinReviews: 50,
			TopN:       200,
			OutputFile: "top_200_places_by_reviews.json",
		},
		Server: ServerConfig{Address: ":8080"},
	}
}

// LoadConfig reads path over the defaults. An empty path yields defaults
// plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Provider.APIKey, "POI_API_KEY")
	set(&c.Provider.Name, "POI_PROVIDER")
	set(&c.Provider.BaseURL, "POI_PROVIDER_URL")
	set(&c.Output.Directory, "POI_OUTPUT_DIR")
	set(&c.Mongo.Host, "MONGO_HOST")
	set(&c.Mongo.Password, "MONGO_PASSWORD")
	set(&c.Postgres.DSN, "POSTGRES_DSN")
	set(&c.Dedup.Redis.Address, "REDIS_ADDR")
	set(&c.NATS.URL, "NATS_URL")
}

// Validate checks what a harvest run needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.APIKey == "" {
		errs = append(errs, errors.New("provider.apiKey is required (or POI_API_KEY)"))
	}
	switch c.Provider.Name {
	case "google_places", "opentripmap":
	default:
		errs = append(errs, fmt.Errorf("provider.name %q is not supported", c.Provider.Name))
	}
	if len(c.Cities) == 0 {
		errs = append(errs, errors.New("cities must not be empty"))
	}
	if len(c.Search.Categories) == 0 {
		errs = append(errs, errors.New("search.categories must not be empty"))
	}
	if c.Search.Radius <= 0 {
		errs = append(errs, errors.New("search.radius must be positive"))
	}
	if c.Fetch.Concurrency <= 0 || c.Fetch.DetailConcurrency <= 0 {
		errs = append(errs, errors.New("fetch concurrency widths must be positive"))
	}
	if c.Fetch.RatePerSecond <= 0 {
		errs = append(errs, errors.New("fetch.ratePerSecond must be positive"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output.directory is required"))
	}
	if c.Dedup.Backend == "redis" && c.Dedup.Redis.Address == "" {
		errs = append(errs, errors.New("dedup.redis.address is required for the redis backend"))
	}
	return errors.Join(errs...)
}
