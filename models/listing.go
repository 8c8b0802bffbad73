package models

import (
	"encoding/json"
	"time"
)

const (
	ListingStatusPending  = "pending"
	ListingStatusActive   = "active"
	ListingStatusInactive = "inactive"
)

// BusinessListing is a directory entry owned by a user.
type BusinessListing struct {
	ID               int64           `json:"id" bson:"_id"`
	UserID           int64           `json:"user_id" bson:"user_id"`
	ListingName      string          `json:"listing_name" bson:"listing_name" validate:"required,max=200"`
	Description      string          `json:"description" bson:"description"`
	Address          string          `json:"address" bson:"address"`
	City             string          `json:"city" bson:"city"`
	State            string          `json:"state" bson:"state"`
	ZipCode          string          `json:"zip_code" bson:"zip_code"`
	Country          string          `json:"country" bson:"country"`
	Phone            string          `json:"phone" bson:"phone"`
	Email            string          `json:"email" bson:"email" validate:"omitempty,email"`
	Website          string          `json:"website" bson:"website" validate:"omitempty,url"`
	LogoURL          string          `json:"logo_url" bson:"logo_url" validate:"omitempty,url"`
	FeaturedImageURL string          `json:"featured_image_url" bson:"featured_image_url" validate:"omitempty,url"`
	Status           string          `json:"status" bson:"status" validate:"oneof=pending active inactive"`
	PlanID           int64           `json:"plan_id,omitempty" bson:"plan_id,omitempty"`
	CustomFields     json.RawMessage `json:"custom_fields,omitempty" bson:"custom_fields,omitempty"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}

// Product belongs to a listing.
type Product struct {
	ID          int64     `json:"id" bson:"_id"`
	ListingID   int64     `json:"listing_id" bson:"listing_id"`
	ProductName string    `json:"product_name" bson:"product_name" validate:"required,max=200"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price" validate:"gte=0"`
	ImageURL    string    `json:"image_url" bson:"image_url" validate:"omitempty,url"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Event belongs to a listing.
type Event struct {
	ID          int64     `json:"id" bson:"_id"`
	ListingID   int64     `json:"listing_id" bson:"listing_id"`
	EventName   string    `json:"event_name" bson:"event_name" validate:"required,max=200"`
	Description string    `json:"description" bson:"description"`
	StartDate   time.Time `json:"start_date" bson:"start_date"`
	EndDate     time.Time `json:"end_date" bson:"end_date"`
	Location    string    `json:"location" bson:"location"`
	ImageURL    string    `json:"image_url" bson:"image_url" validate:"omitempty,url"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Scopes a custom field can apply to.
const (
	CustomFieldScopeListing = "listing"
	CustomFieldScopeProduct = "product"
	CustomFieldScopeEvent   = "event"
)

// Custom field types accepted by CustomField.FieldType.
var CustomFieldTypes = []string{"text", "email", "url", "number", "date", "textarea", "select", "checkbox", "radio"}

// CustomField is an admin-defined extra attribute for listings (or other scopes).
type CustomField struct {
	ID           int64     `json:"id" bson:"_id"`
	FieldName    string    `json:"field_name" bson:"field_name" validate:"required,max=120"`
	FieldSlug    string    `json:"field_slug" bson:"field_slug" validate:"required,max=120"`
	FieldType    string    `json:"field_type" bson:"field_type" validate:"oneof=text email url number date textarea select checkbox radio"`
	FieldOptions []string  `json:"field_options" bson:"field_options"`
	AppliesTo    string    `json:"applies_to" bson:"applies_to" validate:"oneof=listing product event"`
	IsRequired   bool      `json:"is_required" bson:"is_required"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// ListingPlan is a paid or free placement plan a listing can reference.
type ListingPlan struct {
	ID           int64           `json:"id" bson:"_id"`
	PlanName     string          `json:"plan_name" bson:"plan_name" validate:"required,max=120"`
	Description  string          `json:"description" bson:"description"`
	Price        float64         `json:"price" bson:"price" validate:"gte=0"`
	DurationDays int             `json:"duration_days" bson:"duration_days" validate:"gte=0"`
	Features     json.RawMessage `json:"features,omitempty" bson:"features,omitempty"`
	IsActive     bool            `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}
