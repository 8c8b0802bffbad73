package models

import "time"

const (
	EventAppView       = "app_view"
	EventListingView   = "listing_view"
	EventReferralClick = "referral_click"
	EventInstall       = "install"
)

var AnalyticsEventTypes = []string{EventAppView, EventListingView, EventReferralClick, EventInstall}

// AnalyticsEvent is a single counted occurrence.
type AnalyticsEvent struct {
	ID         int64     `json:"id" bson:"_id"`
	EventType  string    `json:"event_type" bson:"event_type"`
	ObjectType string    `json:"object_type,omitempty" bson:"object_type,omitempty"` // "app", "listing", "affiliate"
	ObjectID   string    `json:"object_id,omitempty" bson:"object_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

type AnalyticsQuery struct {
	From       time.Time
	To         time.Time
	ObjectType string
	ObjectID   string
}

type DailyCount struct {
	Day       string `json:"day" bson:"day"`
	EventType string `json:"event_type" bson:"event_type"`
	Count     int64  `json:"count" bson:"count"`
}

type AnalyticsReport struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Totals map[string]int64 `json:"totals"`
	Daily  []DailyCount     `json:"daily"`
}
