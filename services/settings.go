package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

const (
	settingsCacheKey = "aslp:settings"
	settingsCacheTTL = 10 * time.Minute
)

// cachedSettings carries the AI key that GlobalSettings hides from JSON.
type cachedSettings struct {
	models.GlobalSettings
	Key string `json:"ai_api_key"`
}

// SettingsService owns the global feature settings document.
type SettingsService struct {
	repo     repositories.SettingsRepository
	cache    *redis.Client
	defaults models.GlobalSettings
	log      *zap.Logger
	now      func() time.Time
}

// NewSettingsService builds the service. cache may be nil.
func NewSettingsService(repo repositories.SettingsRepository, cache *redis.Client, defaults models.GlobalSettings, log *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, cache: cache, defaults: defaults, log: log, now: time.Now}
}

// Current returns the effective settings: the stored document with any flag
// it does not mention taken from the defaults.
func (s *SettingsService) Current(ctx context.Context) (models.GlobalSettings, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	stored, err := s.repo.GetSettings(ctx)
	if errors.Is(err, models.ErrNoRecord) {
		return s.withDefaults(models.GlobalSettings{}), nil
	}
	if err != nil {
		return models.GlobalSettings{}, models.ErrPersistence(err)
	}

	current := s.withDefaults(*stored)
	s.toCache(ctx, current)
	return current, nil
}

// Update applies a partial change. Unknown flag names are rejected. An empty
// AI key leaves the stored key in place.
func (s *SettingsService) Update(ctx context.Context, upd models.SettingsUpdate) (models.GlobalSettings, error) {
	for name := range upd.Features {
		if !knownFeature(name) {
			return models.GlobalSettings{}, models.ErrValidation(name)
		}
	}

	current, err := s.Current(ctx)
	if err != nil {
		return models.GlobalSettings{}, err
	}
	for name, on := range upd.Features {
		current.Features[name] = on
	}
	if upd.AIAPIEndpoint != nil {
		current.AIAPIEndpoint = *upd.AIAPIEndpoint
	}
	if upd.AIAPIKey != nil && *upd.AIAPIKey != "" {
		current.AIAPIKey = *upd.AIAPIKey
	}
	if upd.AIModel != nil && *upd.AIModel != "" {
		current.AIModel = *upd.AIModel
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveSettings(ctx, &current); err != nil {
		return models.GlobalSettings{}, models.ErrPersistence(err)
	}
	s.invalidate(ctx)
	return current, nil
}

func (s *SettingsService) withDefaults(stored models.GlobalSettings) models.GlobalSettings {
	features := make(map[string]bool, len(models.AllFeatures))
	for name, on := range s.defaults.Features {
		features[name] = on
	}
	for name, on := range stored.Features {
		features[name] = on
	}
	stored.Features = features
	if stored.AIAPIEndpoint == "" {
		stored.AIAPIEndpoint = s.defaults.AIAPIEndpoint
	}
	if stored.AIModel == "" {
		stored.AIModel = s.defaults.AIModel
	}
	return stored
}

func (s *SettingsService) fromCache(ctx context.Context) (models.GlobalSettings, bool) {
	if s.cache == nil {
		return models.GlobalSettings{}, false
	}
	raw, err := s.cache.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("settings cache read failed", zap.Error(err))
		}
		return models.GlobalSettings{}, false
	}
	var cached cachedSettings
	if err := json.Unmarshal(raw, &cached); err != nil {
		return models.GlobalSettings{}, false
	}
	cached.GlobalSettings.AIAPIKey = cached.Key
	return cached.GlobalSettings, true
}

func (s *SettingsService) toCache(ctx context.Context, settings models.GlobalSettings) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedSettings{GlobalSettings: settings, Key: settings.AIAPIKey})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingsCacheKey, raw, settingsCacheTTL).Err(); err != nil {
		s.log.Warn("settings cache write failed", zap.Error(err))
	}
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, settingsCacheKey).Err(); err != nil {
		s.log.Warn("settings cache invalidation failed", zap.Error(err))
	}
}

func knownFeature(name string) bool {
	for _, f := range models.AllFeatures {
		if f == name {
			return true
		}
	}
	return false
}
