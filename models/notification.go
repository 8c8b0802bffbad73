package models

import "time"

// Notification is a per-user message shown on the dashboard.
type Notification struct {
	ID        int64       `json:"id" bson:"_id"`
	UserID    int64       `json:"user_id" bson:"user_id"`
	Title     string      `json:"title" bson:"title"`
	Message   string      `json:"message" bson:"message"`
	Type      string      `json:"type" bson:"type"`
	Link      string      `json:"link,omitempty" bson:"link,omitempty"`
	Data      interface{} `json:"data,omitempty" bson:"data,omitempty"`
	IsRead    bool        `json:"is_read" bson:"is_read"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}
