package helper

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"poi-harvest/pkg/config"
)

type Stores struct {
	Client *mongo.Client
	DB     *mongo.Database
	Places *mongo.Collection // harvested entities, _id = provider id
}

// ConnectMongo dials, pings and makes sure the places collection is indexed.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*Stores, error) {
	clientOpts := options.Client().ApplyURI("mongodb://" + cfg.Host)
	if cfg.Username != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo %s: %w", cfg.Host, err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo %s: %w", cfg.Host, err)
	}

	coll := cfg.Collection
	if coll == "" {
		coll = "places"
	}
	db := cli.Database(cfg.DBName)
	s := &Stores{
		Client: cli,
		DB:     db,
		Places: db.Collection(coll),
	}
	ensureIndexes(ctx, s)
	return s, nil
}

func (s *Stores) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, s *Stores) {
	_, _ = s.Places.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "partition", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "partition", Value: 1}, {Key: "popularity", Value: -1}}},
		{Keys: bson.D{{Key: "fetchedAt", Value: 1}}},
	})
}
