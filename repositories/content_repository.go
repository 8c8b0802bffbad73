package repositories

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aslaburda/aslp_backend/models"
)

const settingsDocumentID = "global"

// Analytics

func (s *MongoStore) RecordEvent(ctx context.Context, e *models.AnalyticsEvent) error {
	id, err := s.nextID(ctx, collAnalytics)
	if err != nil {
		return err
	}
	e.ID = id
	return s.insert(ctx, collAnalytics, e)
}

func (s *MongoStore) Aggregate(ctx context.Context, q models.AnalyticsQuery) (map[string]int64, []models.DailyCount, error) {
	match := bson.M{"created_at": bson.M{"$gte": q.From, "$lt": q.To}}
	if q.ObjectType != "" {
		match["object_type"] = q.ObjectType
	}
	if q.ObjectID != "" {
		match["object_id"] = q.ObjectID
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id": bson.M{
				"day":        bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
				"event_type": "$event_type",
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$project": bson.M{
			"_id":        0,
			"day":        "$_id.day",
			"event_type": "$_id.event_type",
			"count":      1,
		}},
		{"$sort": bson.D{{Key: "day", Value: 1}, {Key: "event_type", Value: 1}}},
	}

	cursor, err := s.coll(collAnalytics).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Close(ctx)

	daily := []models.DailyCount{}
	if err := cursor.All(ctx, &daily); err != nil {
		return nil, nil, err
	}
	totals := make(map[string]int64)
	for _, d := range daily {
		totals[d.EventType] += d.Count
	}
	return totals, daily, nil
}

// Notifications

func (s *MongoStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	id, err := s.nextID(ctx, collNotifications)
	if err != nil {
		return err
	}
	n.ID = id
	return s.insert(ctx, collNotifications, n)
}

func (s *MongoStore) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["is_read"] = false
	}
	notifications := []models.Notification{}
	if err := s.findAll(ctx, collNotifications, filter, newestFirst, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *MongoStore) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	result, err := s.coll(collNotifications).UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (s *MongoStore) DeleteNotification(ctx context.Context, id, userID int64) (bool, error) {
	result, err := s.coll(collNotifications).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, err
	}
	return result.DeletedCount == 1, nil
}

// Pages

func (s *MongoStore) CreatePage(ctx context.Context, p *models.Page) error {
	id, err := s.nextID(ctx, collPages)
	if err != nil {
		return err
	}
	p.ID = id
	return s.insert(ctx, collPages, p)
}

func (s *MongoStore) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	var p models.Page
	if err := s.findOne(ctx, collPages, bson.M{"slug": slug}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListPublishedPages(ctx context.Context) ([]models.Page, error) {
	pages := []models.Page{}
	if err := s.findAll(ctx, collPages, bson.M{"status": models.PageStatusPublish}, byCreation, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *MongoStore) DeletePages(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	result, err := s.coll(collPages).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": sorted}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Settings

func (s *MongoStore) GetSettings(ctx context.Context) (*models.GlobalSettings, error) {
	var settings models.GlobalSettings
	if err := s.findOne(ctx, collSettings, bson.M{"_id": settingsDocumentID}, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *MongoStore) SaveSettings(ctx context.Context, settings *models.GlobalSettings) error {
	_, err := s.coll(collSettings).ReplaceOne(ctx,
		bson.M{"_id": settingsDocumentID},
		settings,
		options.Replace().SetUpsert(true),
	)
	return err
}
