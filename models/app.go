package models

import (
	"encoding/json"
	"time"
)

const (
	AppStatusDraft    = "draft"
	AppStatusActive   = "active"
	AppStatusInactive = "inactive"
)

// App is a PWA configuration record owned by a user.
// AppConfig is kept as the exact bytes the client sent.
type App struct {
	ID          int64           `json:"id" bson:"_id"`
	AppUUID     string          `json:"app_uuid" bson:"app_uuid"`
	UserID      int64           `json:"user_id" bson:"user_id"`
	AppName     string          `json:"app_name" bson:"app_name" validate:"required,max=200"`
	Description string          `json:"description" bson:"description"`
	AppConfig   json.RawMessage `json:"app_config" bson:"app_config"`
	Status      string          `json:"status" bson:"status" validate:"oneof=draft active inactive"`
	TemplateID  int64           `json:"template_id,omitempty" bson:"template_id,omitempty"`
	Icon192URL  string          `json:"icon_192_url,omitempty" bson:"icon_192_url,omitempty"`
	Icon512URL  string          `json:"icon_512_url,omitempty" bson:"icon_512_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// AppTemplate is an admin-managed starting point for new apps.
type AppTemplate struct {
	ID              int64           `json:"id" bson:"_id"`
	TemplateName    string          `json:"template_name" bson:"template_name" validate:"required,max=200"`
	Description     string          `json:"description" bson:"description"`
	TemplateData    json.RawMessage `json:"template_data" bson:"template_data"`
	PreviewImageURL string          `json:"preview_image_url" bson:"preview_image_url" validate:"omitempty,url"`
	IsActive        bool            `json:"is_active" bson:"is_active"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// AppMenu is an admin-managed navigation menu.
type AppMenu struct {
	ID          int64           `json:"id" bson:"_id"`
	MenuName    string          `json:"menu_name" bson:"menu_name" validate:"required,max=200"`
	Description string          `json:"description" bson:"description"`
	MenuItems   json.RawMessage `json:"menu_items" bson:"menu_items"`
	IsActive    bool            `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// WebManifest is the subset of the W3C manifest the service emits.
type WebManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Description     string         `json:"description,omitempty"`
	StartURL        string         `json:"start_url"`
	Scope           string         `json:"scope"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color,omitempty"`
	BackgroundColor string         `json:"background_color,omitempty"`
	Icons           []ManifestIcon `json:"icons,omitempty"`
}

type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}
