package models

import "time"

// Feature flag names.
const (
	FeatureAppBuilder    = "enable_app_builder"
	FeatureListings      = "enable_listings"
	FeatureProducts      = "enable_products"
	FeatureEvents        = "enable_events"
	FeatureAffiliates    = "enable_affiliates"
	FeatureAnalytics     = "enable_analytics"
	FeatureAIAgent       = "enable_ai_agent"
	FeatureMenus         = "enable_menus"
	FeatureCustomFields  = "enable_custom_fields"
	FeatureListingPlans  = "enable_listing_plans"
	FeatureNotifications = "enable_notifications"
	FeatureTools         = "enable_tools"
)

// AllFeatures lists every known flag in display order.
var AllFeatures = []string{
	FeatureAppBuilder,
	FeatureListings,
	FeatureProducts,
	FeatureEvents,
	FeatureAffiliates,
	FeatureAnalytics,
	FeatureAIAgent,
	FeatureMenus,
	FeatureCustomFields,
	FeatureListingPlans,
	FeatureNotifications,
	FeatureTools,
}

// GlobalSettings is the singleton feature settings document.
type GlobalSettings struct {
	Features      map[string]bool `json:"features" bson:"features"`
	AIAPIEndpoint string          `json:"ai_api_endpoint" bson:"ai_api_endpoint"`
	AIAPIKey      string          `json:"-" bson:"ai_api_key"`
	AIModel       string          `json:"ai_model" bson:"ai_model"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
}

// Enabled reports a flag's value. Unknown flags are off.
func (s GlobalSettings) Enabled(feature string) bool {
	if s.Features == nil {
		return false
	}
	return s.Features[feature]
}

// AIConfigured reports whether both AI endpoint and key are present.
func (s GlobalSettings) AIConfigured() bool {
	return s.AIAPIEndpoint != "" && s.AIAPIKey != ""
}

// DefaultSettings enables every feature.
func DefaultSettings(aiEndpoint, aiModel string) GlobalSettings {
	features := make(map[string]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		features[f] = true
	}
	return GlobalSettings{Features: features, AIAPIEndpoint: aiEndpoint, AIModel: aiModel}
}

// SettingsView is the client-safe rendering of GlobalSettings.
type SettingsView struct {
	Features      map[string]bool `json:"features"`
	AIAPIEndpoint string          `json:"ai_api_endpoint"`
	AIAPIKeySet   bool            `json:"ai_api_key_set"`
	AIModel       string          `json:"ai_model"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s GlobalSettings) View() SettingsView {
	features := make(map[string]bool, len(s.Features))
	for k, v := range s.Features {
		features[k] = v
	}
	return SettingsView{
		Features:      features,
		AIAPIEndpoint: s.AIAPIEndpoint,
		AIAPIKeySet:   s.AIAPIKey != "",
		AIModel:       s.AIModel,
		UpdatedAt:     s.UpdatedAt,
	}
}

// SettingsUpdate carries a partial settings change; nil fields are untouched.
type SettingsUpdate struct {
	Features      map[string]bool
	AIAPIEndpoint *string
	AIAPIKey      *string
	AIModel       *string
}
