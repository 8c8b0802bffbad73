package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aslaburda/aslp_backend/models"
)

func (s *MongoStore) CreateApp(ctx context.Context, app *models.App) error {
	id, err := s.nextID(ctx, collApps)
	if err != nil {
		return err
	}
	app.ID = id
	return s.insert(ctx, collApps, app)
}

func (s *MongoStore) UpdateApp(ctx context.Context, app *models.App) error {
	return s.replace(ctx, collApps, app.ID, app)
}

func (s *MongoStore) DeleteApp(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collApps, id)
}

func (s *MongoStore) GetApp(ctx context.Context, id int64) (*models.App, error) {
	var app models.App
	if err := s.findOne(ctx, collApps, bson.M{"_id": id}, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *MongoStore) GetAppByUUID(ctx context.Context, appUUID string) (*models.App, error) {
	var app models.App
	if err := s.findOne(ctx, collApps, bson.M{"app_uuid": appUUID}, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *MongoStore) ListApps(ctx context.Context, userID int64) ([]models.App, error) {
	filter := bson.M{}
	if userID != 0 {
		filter["user_id"] = userID
	}
	apps := []models.App{}
	if err := s.findAll(ctx, collApps, filter, newestFirst, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *MongoStore) CountApps(ctx context.Context) (int64, error) {
	return s.count(ctx, collApps, bson.M{})
}

// Templates

func (s *MongoStore) CreateTemplate(ctx context.Context, t *models.AppTemplate) error {
	id, err := s.nextID(ctx, collTemplates)
	if err != nil {
		return err
	}
	t.ID = id
	return s.insert(ctx, collTemplates, t)
}

func (s *MongoStore) UpdateTemplate(ctx context.Context, t *models.AppTemplate) error {
	return s.replace(ctx, collTemplates, t.ID, t)
}

func (s *MongoStore) DeleteTemplate(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collTemplates, id)
}

func (s *MongoStore) GetTemplate(ctx context.Context, id int64) (*models.AppTemplate, error) {
	var t models.AppTemplate
	if err := s.findOne(ctx, collTemplates, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoStore) ListTemplates(ctx context.Context) ([]models.AppTemplate, error) {
	templates := []models.AppTemplate{}
	if err := s.findAll(ctx, collTemplates, bson.M{}, byCreation, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// Menus

func (s *MongoStore) CreateMenu(ctx context.Context, m *models.AppMenu) error {
	id, err := s.nextID(ctx, collMenus)
	if err != nil {
		return err
	}
	m.ID = id
	return s.insert(ctx, collMenus, m)
}

func (s *MongoStore) UpdateMenu(ctx context.Context, m *models.AppMenu) error {
	return s.replace(ctx, collMenus, m.ID, m)
}

func (s *MongoStore) DeleteMenu(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collMenus, id)
}

func (s *MongoStore) GetMenu(ctx context.Context, id int64) (*models.AppMenu, error) {
	var m models.AppMenu
	if err := s.findOne(ctx, collMenus, bson.M{"_id": id}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) ListMenus(ctx context.Context) ([]models.AppMenu, error) {
	menus := []models.AppMenu{}
	if err := s.findAll(ctx, collMenus, bson.M{}, byCreation, &menus); err != nil {
		return nil, err
	}
	return menus, nil
}
