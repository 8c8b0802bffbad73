package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/utils"
)

// AppInput is a create (ID and AppUUID empty) or update request for an app.
type AppInput struct {
	ID          int64
	AppUUID     string
	UserID      int64 // admin only: reassign owner
	AppName     string
	Description string
	AppConfig   json.RawMessage
	Status      string
	TemplateID  int64
}

// AppBuilderService manages apps, their templates and PWA assets.
type AppBuilderService struct {
	apps       repositories.AppRepository
	templates  repositories.TemplateRepository
	validate   *validator.Validate
	uploadsDir string
	baseURL    string
	log        *zap.Logger
	now        func() time.Time
}

func NewAppBuilderService(apps repositories.AppRepository, templates repositories.TemplateRepository, validate *validator.Validate, uploadsDir, baseURL string, log *zap.Logger) *AppBuilderService {
	return &AppBuilderService{
		apps:       apps,
		templates:  templates,
		validate:   validate,
		uploadsDir: uploadsDir,
		baseURL:    baseURL,
		log:        log,
		now:        time.Now,
	}
}

// SaveApp creates or updates an app. Self-service callers can only touch
// their own apps and always own what they create.
func (s *AppBuilderService) SaveApp(ctx context.Context, p security.Principal, in AppInput) (*models.App, error) {
	now := s.now().UTC()

	if in.ID == 0 && in.AppUUID == "" {
		app := &models.App{
			AppUUID:     uuid.New().String(),
			UserID:      p.UserID,
			AppName:     in.AppName,
			Description: in.Description,
			AppConfig:   in.AppConfig,
			Status:      in.Status,
			TemplateID:  in.TemplateID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if p.Can(security.PermManageApps) && in.UserID != 0 {
			app.UserID = in.UserID
		}
		if app.Status == "" {
			app.Status = models.AppStatusDraft
		}
		if len(app.AppConfig) == 0 && app.TemplateID != 0 {
			tpl, err := s.templates.GetTemplate(ctx, app.TemplateID)
			if err != nil {
				return nil, lookupErr(err, "template")
			}
			app.AppConfig = tpl.TemplateData
		}
		if len(app.AppConfig) == 0 {
			app.AppConfig = json.RawMessage(`{}`)
		}
		if err := s.check(app); err != nil {
			return nil, err
		}
		if err := s.apps.CreateApp(ctx, app); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return app, nil
	}

	app, err := s.find(ctx, in.ID, in.AppUUID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwned(p, security.PermCreateApps, security.PermManageApps, app.UserID, "app"); err != nil {
		return nil, err
	}

	app.AppName = in.AppName
	app.Description = in.Description
	if len(in.AppConfig) > 0 {
		app.AppConfig = in.AppConfig
	}
	if in.Status != "" {
		app.Status = in.Status
	}
	if in.TemplateID != 0 {
		app.TemplateID = in.TemplateID
	}
	if p.Can(security.PermManageApps) && in.UserID != 0 {
		app.UserID = in.UserID
	}
	app.UpdatedAt = now
	if err := s.check(app); err != nil {
		return nil, err
	}
	if err := s.apps.UpdateApp(ctx, app); err != nil {
		return nil, lookupErr(err, "app")
	}
	return app, nil
}

func (s *AppBuilderService) check(app *models.App) error {
	if err := s.validate.Struct(app); err != nil {
		return validationErr(err)
	}
	return nil
}

func (s *AppBuilderService) find(ctx context.Context, id int64, appUUID string) (*models.App, error) {
	var (
		app *models.App
		err error
	)
	if appUUID != "" {
		app, err = s.apps.GetAppByUUID(ctx, appUUID)
	} else {
		app, err = s.apps.GetApp(ctx, id)
	}
	if err != nil {
		return nil, lookupErr(err, "app")
	}
	return app, nil
}

// GetApp returns an app by id or uuid if p may see it.
func (s *AppBuilderService) GetApp(ctx context.Context, p security.Principal, id int64, appUUID string) (*models.App, error) {
	app, err := s.find(ctx, id, appUUID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwned(p, security.PermCreateApps, security.PermManageApps, app.UserID, "app"); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *AppBuilderService) DeleteApp(ctx context.Context, p security.Principal, id int64, appUUID string) error {
	app, err := s.GetApp(ctx, p, id, appUUID)
	if err != nil {
		return err
	}
	if err := s.apps.DeleteApp(ctx, app.ID); err != nil {
		return lookupErr(err, "app")
	}
	return nil
}

func (s *AppBuilderService) ListUserApps(ctx context.Context, userID int64) ([]models.App, error) {
	apps, err := s.apps.ListApps(ctx, userID)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return apps, nil
}

func (s *AppBuilderService) ListAllApps(ctx context.Context) ([]models.App, error) {
	return s.ListUserApps(ctx, 0)
}

// UploadIcon stores square 192 and 512 pixel icons generated from image.
func (s *AppBuilderService) UploadIcon(ctx context.Context, p security.Principal, id int64, appUUID, filename string, image []byte) (*models.App, error) {
	app, err := s.GetApp(ctx, p, id, appUUID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateImageFile(filename, int64(len(image))); err != nil {
		return nil, models.ErrValidationf("icon: %v", err)
	}
	urls, err := utils.GenerateAppIcons(s.uploadsDir, app.AppUUID, image)
	if err != nil {
		s.log.Warn("icon generation failed", zap.String("app_uuid", app.AppUUID), zap.Error(err))
		return nil, models.ErrValidation("icon")
	}
	app.Icon192URL = urls[192]
	app.Icon512URL = urls[512]
	app.UpdatedAt = s.now().UTC()
	if err := s.apps.UpdateApp(ctx, app); err != nil {
		return nil, lookupErr(err, "app")
	}
	return app, nil
}

// InstallURL is the public start URL of an app.
func (s *AppBuilderService) InstallURL(app *models.App) string {
	return fmt.Sprintf("%s/apps/%s/", s.baseURL, app.AppUUID)
}

// AppQR returns a PNG data URI encoding the install URL of the app.
func (s *AppBuilderService) AppQR(ctx context.Context, p security.Principal, id int64, appUUID string) (string, error) {
	app, err := s.GetApp(ctx, p, id, appUUID)
	if err != nil {
		return "", err
	}
	uri, err := utils.QRCodeDataURI(s.InstallURL(app), 256)
	if err != nil {
		return "", models.ErrPersistence(err)
	}
	return uri, nil
}

// manifestConfig are the app_config keys that feed the web manifest.
type manifestConfig struct {
	ShortName       string `json:"short_name"`
	Display         string `json:"display"`
	ThemeColor      string `json:"theme_color"`
	BackgroundColor string `json:"background_color"`
}

// Manifest builds the web app manifest of a non-inactive app.
func (s *AppBuilderService) Manifest(ctx context.Context, appUUID string) (*models.WebManifest, error) {
	app, err := s.apps.GetAppByUUID(ctx, appUUID)
	if err != nil {
		return nil, lookupErr(err, "app")
	}
	if app.Status == models.AppStatusInactive {
		return nil, models.ErrNotFound("app")
	}

	var cfg manifestConfig
	if len(app.AppConfig) > 0 {
		if err := json.Unmarshal(app.AppConfig, &cfg); err != nil {
			// app_config is opaque; a non-object simply contributes nothing
			cfg = manifestConfig{}
		}
	}
	m := &models.WebManifest{
		Name:            app.AppName,
		ShortName:       cfg.ShortName,
		Description:     app.Description,
		StartURL:        s.InstallURL(app),
		Scope:           s.InstallURL(app),
		Display:         cfg.Display,
		ThemeColor:      cfg.ThemeColor,
		BackgroundColor: cfg.BackgroundColor,
	}
	if m.ShortName == "" {
		m.ShortName = truncate(app.AppName, 12)
	}
	if m.Display == "" {
		m.Display = "standalone"
	}
	if app.Icon192URL != "" {
		m.Icons = append(m.Icons, models.ManifestIcon{Src: s.baseURL + app.Icon192URL, Sizes: "192x192", Type: "image/png"})
	}
	if app.Icon512URL != "" {
		m.Icons = append(m.Icons, models.ManifestIcon{Src: s.baseURL + app.Icon512URL, Sizes: "512x512", Type: "image/png"})
	}
	return m, nil
}

// Templates

func (s *AppBuilderService) SaveTemplate(ctx context.Context, t *models.AppTemplate) (*models.AppTemplate, error) {
	if len(t.TemplateData) == 0 {
		t.TemplateData = json.RawMessage(`{}`)
	}
	if err := s.validate.Struct(t); err != nil {
		return nil, validationErr(err)
	}
	now := s.now().UTC()
	t.UpdatedAt = now
	if t.ID == 0 {
		t.CreatedAt = now
		if err := s.templates.CreateTemplate(ctx, t); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return t, nil
	}
	existing, err := s.templates.GetTemplate(ctx, t.ID)
	if err != nil {
		return nil, lookupErr(err, "template")
	}
	t.CreatedAt = existing.CreatedAt
	if err := s.templates.UpdateTemplate(ctx, t); err != nil {
		return nil, lookupErr(err, "template")
	}
	return t, nil
}

func (s *AppBuilderService) DeleteTemplate(ctx context.Context, id int64) error {
	if err := s.templates.DeleteTemplate(ctx, id); err != nil {
		return lookupErr(err, "template")
	}
	return nil
}

func (s *AppBuilderService) ListTemplates(ctx context.Context) ([]models.AppTemplate, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return templates, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// validationErr names the first field rejected by the validator.
func validationErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return models.ErrValidation(verrs[0].Field())
	}
	return models.ErrValidationf("%v", err)
}
