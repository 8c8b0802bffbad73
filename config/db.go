package config

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and ensures indexes.
func ConnectDB(cfg *Config, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	mongoURI := cfg.MongoURI
	if mongoURI == "" {
		if cfg.IsProduction() {
			return nil, nil, errors.New("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
		mongoURI = "mongodb://localhost:27017"
	}

	log.Info("Connecting to MongoDB", zap.String("uri", maskMongoURI(mongoURI)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}
	log.Info("Connected to MongoDB")

	db := client.Database(cfg.DBName)
	setupIndexes(db, log)
	return client, db, nil
}

// setupIndexes creates the unique keys the repositories rely on.
func setupIndexes(db *mongo.Database, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		"apps": {
			{Keys: bson.D{{Key: "app_uuid", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		"business_listings": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		"products": {
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
		"events": {
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
		"custom_fields": {
			{Keys: bson.D{{Key: "applies_to", Value: 1}, {Key: "field_slug", Value: 1}}, Options: unique},
		},
		"affiliates": {
			{Keys: bson.D{{Key: "affiliate_code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "current_tier_id", Value: 1}}},
		},
		"affiliate_commissions": {
			{Keys: bson.D{{Key: "affiliate_id", Value: 1}, {Key: "commission_status", Value: 1}}},
		},
		"affiliate_payouts": {
			{Keys: bson.D{{Key: "affiliate_id", Value: 1}, {Key: "payout_status", Value: 1}}},
		},
		"analytics_events": {
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "event_type", Value: 1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		"pages": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "title", Value: 1}}},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		},
	}

	for collName, idx := range indexes {
		if _, err := db.Collection(collName).Indexes().CreateMany(ctx, idx); err != nil {
			log.Warn("Error creating indexes", zap.String("collection", collName), zap.Error(err))
		}
	}

	log.Info("Database indexes setup complete")
}

// maskMongoURI masks the password in a MongoDB URI for logging.
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
