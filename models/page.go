package models

import "time"

const (
	PageStatusPublish = "publish"
	PageStatusDraft   = "draft"
)

// Page is a content record managed by the site tools.
type Page struct {
	ID        int64     `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Slug      string    `json:"slug" bson:"slug"`
	Content   string    `json:"content" bson:"content"`
	Status    string    `json:"status" bson:"status"`
	AuthorID  int64     `json:"author_id,omitempty" bson:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DuplicateGroup is a set of published pages sharing a title, ordered oldest first.
type DuplicateGroup struct {
	Title string  `json:"title"`
	IDs   []int64 `json:"ids"`
}

type DuplicateRepairReport struct {
	DeletedCount int      `json:"deleted_count"`
	Titles       []string `json:"titles"`
	DeletedIDs   []int64  `json:"deleted_ids"`
}

type MissingPagesReport struct {
	Created  []Page   `json:"created"`
	Existing []string `json:"existing"`
	Failed   []string `json:"failed,omitempty"`
}
