package controllers

import (
	"context"
	"encoding/json"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	"github.com/aslaburda/aslp_backend/utils"
)

func settingsUpdate(p *utils.Params) (models.SettingsUpdate, error) {
	upd := models.SettingsUpdate{Features: map[string]bool{}}
	if raw := p.JSON("features", false); raw != nil {
		if err := json.Unmarshal(raw, &upd.Features); err != nil {
			return upd, models.ErrValidation("features")
		}
	}
	for _, name := range models.AllFeatures {
		if p.Has(name) {
			upd.Features[name] = p.Bool(name)
		}
	}
	if p.Has("ai_api_endpoint") {
		endpoint := p.URL("ai_api_endpoint", false)
		upd.AIAPIEndpoint = &endpoint
	}
	if p.Has("ai_api_key") {
		key := p.Secret("ai_api_key", false)
		upd.AIAPIKey = &key
	}
	if p.Has("ai_model") {
		model := p.String("ai_model", false)
		upd.AIModel = &model
	}
	return upd, p.Err()
}

// AdminActions covers settings, analytics, the AI agent and site tools.
func AdminActions(settings *services.SettingsService, analytics *services.AnalyticsService, ai *services.AIAgentService, tools *services.ToolsService) []Action {
	admin := func(name string, perm security.Permission, feature string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopeAdmin, Permission: perm, Feature: feature, Handle: h}
	}
	objectTypes := []string{"app", "listing", "affiliate"}

	return []Action{
		admin("aslp_get_global_settings", security.PermManageSettings, "",
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				return rc.Settings.View(), nil
			}),
		admin("aslp_update_global_settings", security.PermManageSettings, "",
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				upd, err := settingsUpdate(rc.Params)
				if err != nil {
					return nil, err
				}
				updated, err := settings.Update(ctx, upd)
				if err != nil {
					return nil, err
				}
				return updated.View(), nil
			}),

		admin("aslp_get_analytics_data", security.PermViewAnalytics, models.FeatureAnalytics,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				q := models.AnalyticsQuery{
					From:       p.Time("date_from", false),
					To:         p.Time("date_to", false),
					ObjectType: p.Enum("object_type", false, "", objectTypes...),
					ObjectID:   p.String("object_id", false),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return analytics.Report(ctx, q)
			}),
		{
			Name:    "aslp_track_event",
			Scope:   security.ScopePublic,
			Feature: models.FeatureAnalytics,
			Public:  true,
			Handle: func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				eventType := p.Enum("event_type", true, "", models.AnalyticsEventTypes...)
				objectType := p.Enum("object_type", false, "", objectTypes...)
				objectID := p.String("object_id", false)
				if err := p.Err(); err != nil {
					return nil, err
				}
				if err := analytics.Track(ctx, eventType, objectType, objectID, rc.Principal.UserID); err != nil {
					return nil, err
				}
				return map[string]bool{"tracked": true}, nil
			},
		},

		admin("aslp_admin_ai_chat", security.PermUseAIAgent, models.FeatureAIAgent,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				message := rc.Params.Text("message", true)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				reply, err := ai.Chat(ctx, rc.Settings, message)
				if err != nil {
					return nil, err
				}
				return map[string]string{"reply": reply}, nil
			}),
		admin("aslp_admin_ai_generate_seo", security.PermUseAIAgent, models.FeatureAIAgent,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				title := p.String("title", true)
				content := p.Text("content", true)
				if err := p.Err(); err != nil {
					return nil, err
				}
				return ai.GenerateSEO(ctx, rc.Settings, title, content)
			}),
		admin("aslp_admin_ai_create_content", security.PermUseAIAgent, models.FeatureAIAgent,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				topic := p.String("topic", true)
				contentType := p.String("content_type", false)
				save := p.Bool("save_as_draft")
				if err := p.Err(); err != nil {
					return nil, err
				}
				return ai.CreateContent(ctx, rc.Settings, rc.Principal, topic, contentType, save)
			}),
		admin("aslp_admin_ai_debug_site", security.PermUseAIAgent, models.FeatureAIAgent,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				return ai.DebugSite(ctx, rc.Settings)
			}),

		admin("aslp_admin_create_missing_pages", security.PermManageTools, models.FeatureTools,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				return tools.CreateMissingPages(ctx, rc.Principal)
			}),
		admin("aslp_admin_get_duplicated_pages", security.PermManageTools, models.FeatureTools,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				groups, err := tools.DetectDuplicates(ctx)
				return listOf(groups), err
			}),
		admin("aslp_admin_fix_duplicated_pages", security.PermManageTools, models.FeatureTools,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				return tools.RepairDuplicates(ctx)
			}),
	}
}

// NotificationActions is the caller's notification inbox.
func NotificationActions(notifications *services.NotificationService) []Action {
	self := func(name string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopePublic, Permission: security.PermViewNotifications, Feature: models.FeatureNotifications, Handle: h}
	}
	return []Action{
		self("aslp_get_user_notifications", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			list, err := notifications.List(ctx, rc.Principal.UserID, rc.Params.Bool("unread_only"))
			return listOf(list), err
		}),
		self("aslp_mark_notification_read", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id := rc.Params.Int("id", true)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			if err := notifications.MarkRead(ctx, rc.Principal.UserID, id); err != nil {
				return nil, err
			}
			return map[string]interface{}{"read": true, "id": id}, nil
		}),
		self("aslp_delete_notification", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id := rc.Params.Int("id", true)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			if err := notifications.Delete(ctx, rc.Principal.UserID, id); err != nil {
				return nil, err
			}
			return deleted(id), nil
		}),
	}
}
