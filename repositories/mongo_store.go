package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aslaburda/aslp_backend/models"
)

// Collection names.
const (
	collCounters      = "counters"
	collUsers         = "users"
	collApps          = "apps"
	collTemplates     = "app_templates"
	collMenus         = "app_menus"
	collListings      = "business_listings"
	collProducts      = "products"
	collEvents        = "events"
	collCustomFields  = "custom_fields"
	collListingPlans  = "listing_plans"
	collAffiliates    = "affiliates"
	collTiers         = "affiliate_tiers"
	collCommissions   = "affiliate_commissions"
	collPayouts       = "affiliate_payouts"
	collCreatives     = "affiliate_creatives"
	collAnalytics     = "analytics_events"
	collNotifications = "notifications"
	collPages         = "pages"
	collSettings      = "settings"
)

// MongoStore implements every repository port on one database.
type MongoStore struct {
	db *mongo.Database
}

var (
	_ UserRepository         = (*MongoStore)(nil)
	_ AppRepository          = (*MongoStore)(nil)
	_ TemplateRepository     = (*MongoStore)(nil)
	_ MenuRepository         = (*MongoStore)(nil)
	_ ListingRepository      = (*MongoStore)(nil)
	_ CustomFieldRepository  = (*MongoStore)(nil)
	_ ListingPlanRepository  = (*MongoStore)(nil)
	_ AffiliateRepository    = (*MongoStore)(nil)
	_ TierRepository         = (*MongoStore)(nil)
	_ CommissionRepository   = (*MongoStore)(nil)
	_ PayoutRepository       = (*MongoStore)(nil)
	_ CreativeRepository     = (*MongoStore)(nil)
	_ AnalyticsRepository    = (*MongoStore)(nil)
	_ NotificationRepository = (*MongoStore)(nil)
	_ PageRepository         = (*MongoStore)(nil)
	_ SettingsRepository     = (*MongoStore)(nil)
)

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// nextID returns the next integer id of a collection using a counters document.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.coll(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) insert(ctx context.Context, name string, doc interface{}) error {
	_, err := s.coll(name).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) findOne(ctx context.Context, name string, filter interface{}, out interface{}) error {
	err := s.coll(name).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNoRecord
	}
	return err
}

func (s *MongoStore) findAll(ctx context.Context, name string, filter interface{}, sort bson.D, out interface{}) error {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cursor, err := s.coll(name).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (s *MongoStore) replace(ctx context.Context, name string, id int64, doc interface{}) error {
	result, err := s.coll(name).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

func (s *MongoStore) updateByID(ctx context.Context, name string, id int64, update interface{}) error {
	result, err := s.coll(name).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

func (s *MongoStore) deleteByID(ctx context.Context, name string, id int64) error {
	result, err := s.coll(name).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

func (s *MongoStore) count(ctx context.Context, name string, filter interface{}) (int64, error) {
	return s.coll(name).CountDocuments(ctx, filter)
}

// byCreation sorts oldest first with the id as tie-break.
var byCreation = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
