package controllers

import (
	"context"
	"io"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	"github.com/aslaburda/aslp_backend/utils"
)

const maxIconUpload = 10 << 20

// listOf keeps empty lists serialised as [] rather than null.
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func deleted(id interface{}) map[string]interface{} {
	return map[string]interface{}{"deleted": true, "id": id}
}

// appRef reads an app reference: app_uuid, or id when no uuid is given.
func appRef(p *utils.Params) (int64, string) {
	appUUID := p.String("app_uuid", false)
	id := p.Int("id", appUUID == "")
	return id, appUUID
}

func appInput(p *utils.Params, allowOwner bool) services.AppInput {
	in := services.AppInput{
		ID:          p.Int("id", false),
		AppUUID:     p.String("app_uuid", false),
		AppName:     p.String("app_name", true),
		Description: p.Text("description", false),
		AppConfig:   p.JSON("app_config", false),
		Status:      p.Enum("status", false, "", models.AppStatusDraft, models.AppStatusActive, models.AppStatusInactive),
		TemplateID:  p.Int("template_id", false),
	}
	if allowOwner {
		in.UserID = p.Int("user_id", false)
	}
	return in
}

// AppActions covers the app builder, templates and menus.
func AppActions(apps *services.AppBuilderService, menus *services.MenuService) []Action {
	admin := func(name string, perm security.Permission, feature string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopeAdmin, Permission: perm, Feature: feature, Handle: h}
	}
	self := func(name string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopePublic, Permission: security.PermCreateApps, Feature: models.FeatureAppBuilder, Handle: h}
	}

	saveApp := func(allowOwner bool) Handler {
		return func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			in := appInput(rc.Params, allowOwner)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			return apps.SaveApp(ctx, rc.Principal, in)
		}
	}
	deleteApp := func(ctx context.Context, rc *RequestContext) (interface{}, error) {
		id, appUUID := appRef(rc.Params)
		if err := rc.Params.Err(); err != nil {
			return nil, err
		}
		if err := apps.DeleteApp(ctx, rc.Principal, id, appUUID); err != nil {
			return nil, err
		}
		return map[string]interface{}{"deleted": true, "id": id, "app_uuid": appUUID}, nil
	}

	return []Action{
		admin("aslp_get_all_apps", security.PermManageApps, models.FeatureAppBuilder,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := apps.ListAllApps(ctx)
				return listOf(list), err
			}),
		admin("aslp_create_update_app_admin", security.PermManageApps, models.FeatureAppBuilder, saveApp(true)),
		admin("aslp_delete_app_admin", security.PermManageApps, models.FeatureAppBuilder, deleteApp),

		admin("aslp_get_all_app_templates", security.PermManageAppTemplates, models.FeatureAppBuilder,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := apps.ListTemplates(ctx)
				return listOf(list), err
			}),
		admin("aslp_add_update_app_template", security.PermManageAppTemplates, models.FeatureAppBuilder,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				t := &models.AppTemplate{
					ID:              p.Int("id", false),
					TemplateName:    p.String("template_name", true),
					Description:     p.Text("description", false),
					TemplateData:    p.JSON("template_data", false),
					PreviewImageURL: p.URL("preview_image_url", false),
					IsActive:        p.BoolDefault("is_active", true),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return apps.SaveTemplate(ctx, t)
			}),
		admin("aslp_delete_app_template", security.PermManageAppTemplates, models.FeatureAppBuilder,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				id := rc.Params.Int("id", true)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				return deleted(id), apps.DeleteTemplate(ctx, id)
			}),

		admin("aslp_get_all_app_menus", security.PermManageAppMenus, models.FeatureMenus,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := menus.List(ctx)
				return listOf(list), err
			}),
		admin("aslp_add_update_app_menu", security.PermManageAppMenus, models.FeatureMenus,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				m := &models.AppMenu{
					ID:          p.Int("id", false),
					MenuName:    p.String("menu_name", true),
					Description: p.Text("description", false),
					MenuItems:   p.JSON("menu_items", false),
					IsActive:    p.BoolDefault("is_active", true),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return menus.Save(ctx, m)
			}),
		admin("aslp_delete_app_menu", security.PermManageAppMenus, models.FeatureMenus,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				id := rc.Params.Int("id", true)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				return deleted(id), menus.Delete(ctx, id)
			}),

		self("aslp_get_user_apps", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			list, err := apps.ListUserApps(ctx, rc.Principal.UserID)
			return listOf(list), err
		}),
		self("aslp_create_update_app", saveApp(false)),
		self("aslp_delete_app", deleteApp),
		self("aslp_get_app", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id, appUUID := appRef(rc.Params)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			return apps.GetApp(ctx, rc.Principal, id, appUUID)
		}),
		self("aslp_upload_app_icon", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id, appUUID := appRef(rc.Params)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			header, err := rc.Echo.FormFile("icon")
			if err != nil {
				return nil, models.ErrValidation("icon")
			}
			if header.Size > maxIconUpload {
				return nil, models.ErrValidationf("icon: file too large")
			}
			f, err := header.Open()
			if err != nil {
				return nil, models.ErrValidation("icon")
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, maxIconUpload+1))
			if err != nil {
				return nil, models.ErrValidation("icon")
			}
			return apps.UploadIcon(ctx, rc.Principal, id, appUUID, header.Filename, data)
		}),
		self("aslp_get_app_qr", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id, appUUID := appRef(rc.Params)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			app, err := apps.GetApp(ctx, rc.Principal, id, appUUID)
			if err != nil {
				return nil, err
			}
			qr, err := apps.AppQR(ctx, rc.Principal, app.ID, "")
			if err != nil {
				return nil, err
			}
			return map[string]string{"install_url": apps.InstallURL(app), "qr_code": qr}, nil
		}),
	}
}
