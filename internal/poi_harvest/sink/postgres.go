package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var pgColumns = []string{
	"id", "name", "partition", "category", "lat", "lng", "tags", "rating", "rating_count",
	"popularity", "media", "description", "address", "status", "source", "url", "fetched_at",
}

// Postgres upserts entities in multi-row batches. A failed batch is retried
// with doubling delay before the write gives up.
type Postgres struct {
	DB          *sql.DB
	Table       string
	BatchSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Clock       clock.Clock
	Log         *zap.Logger
}

func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgres(db *sql.DB, table string, log *zap.Logger) (*Postgres, error) {
	if table == "" {
		table = "places"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{
		DB:          db,
		Table:       table,
		BatchSize:   200,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
		Clock:       clock.Real{},
		Log:         log,
	}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + p.Table + ` (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		partition    TEXT NOT NULL,
		category     TEXT,
		lat          DOUBLE PRECISION,
		lng          DOUBLE PRECISION,
		tags         JSONB,
		rating       DOUBLE PRECISION,
		rating_count INTEGER,
		popularity   DOUBLE PRECISION,
		media        JSONB,
		description  TEXT,
		address      TEXT,
		status       TEXT,
		source       TEXT,
		url          TEXT,
		fetched_at   TIMESTAMPTZ
	)`
	if _, err := p.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", p.Table, err)
	}
	return nil
}

func (p *Postgres) Write(ctx context.Context, entities []model.Entity) (int, error) {
	total := 0
	for i, batch := range chunks(lastWins(entities), p.BatchSize) {
		n, err := p.writeWithRetry(ctx, batch)
		if err != nil {
			return total, fmt.Errorf("postgres batch %d: %w", i+1, err)
		}
		total += n
	}
	p.Log.Info("Postgres upsert finished", zap.String("table", p.Table), zap.Int("rows", total))
	return total, nil
}

func (p *Postgres) writeWithRetry(ctx context.Context, batch []model.Entity) (int, error) {
	attempts := max(p.MaxAttempts, 1)
	delay := p.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		n, err := p.upsert(ctx, batch)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		p.Log.Warn("Postgres batch failed, retry scheduled",
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := p.Clock.Sleep(ctx, delay); err != nil {
			return 0, err
		}
		delay *= 2
	}
	return 0, lastErr
}

func (p *Postgres) upsert(ctx context.Context, batch []model.Entity) (int, error) {
	query, args, err := upsertStatement(p.Table, batch)
	if err != nil {
		return 0, err
	}
	res, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(batch), nil
	}
	return int(n), nil
}

func upsertStatement(table string, batch []model.Entity) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (" + strings.Join(pgColumns, ", ") + ") VALUES ")

	args := make([]any, 0, len(batch)*len(pgColumns))
	for i, e := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range pgColumns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*len(pgColumns)+c+1)
		}
		b.WriteByte(')')

		tags, err := json.Marshal(nonNil(e.Tags))
		if err != nil {
			return "", nil, fmt.Errorf("marshal tags of %s: %w", e.ID, err)
		}
		media, err := json.Marshal(nonNil(e.Media))
		if err != nil {
			return "", nil, fmt.Errorf("marshal media of %s: %w", e.ID, err)
		}
		args = append(args,
			e.ID, e.Name, e.Partition, e.Category, e.Coordinates.Lat, e.Coordinates.Lng,
			string(tags), e.Rating, e.RatingCount, e.Popularity, string(media),
			e.Description, e.Address, e.Status, e.Source, e.URL, e.FetchedAt.UTC(),
		)
	}

	b.WriteString(" ON CONFLICT (id) DO UPDATE SET ")
	for i, col := range pgColumns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col + " = EXCLUDED." + col)
	}
	return b.String(), args, nil
}

// lastWins drops earlier duplicates; Postgres rejects a statement that
// touches the same conflict key twice.
func lastWins(entities []model.Entity) []model.Entity {
	idx := make(map[string]int, len(entities))
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if i, ok := idx[e.ID]; ok {
			out[i] = e
			continue
		}
		idx[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
