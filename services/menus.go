package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

// MenuService manages the navigation menus apps can attach.
type MenuService struct {
	menus    repositories.MenuRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewMenuService(menus repositories.MenuRepository, validate *validator.Validate) *MenuService {
	return &MenuService{menus: menus, validate: validate, now: time.Now}
}

func (s *MenuService) List(ctx context.Context) ([]models.AppMenu, error) {
	menus, err := s.menus.ListMenus(ctx)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return menus, nil
}

// Save creates m when its id is zero, otherwise replaces the stored menu.
func (s *MenuService) Save(ctx context.Context, m *models.AppMenu) (*models.AppMenu, error) {
	if len(m.MenuItems) == 0 {
		m.MenuItems = json.RawMessage(`[]`)
	}
	if err := s.validate.Struct(m); err != nil {
		return nil, validationErr(err)
	}
	now := s.now().UTC()
	m.UpdatedAt = now
	if m.ID == 0 {
		m.CreatedAt = now
		if err := s.menus.CreateMenu(ctx, m); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return m, nil
	}
	existing, err := s.menus.GetMenu(ctx, m.ID)
	if err != nil {
		return nil, lookupErr(err, "menu")
	}
	m.CreatedAt = existing.CreatedAt
	if err := s.menus.UpdateMenu(ctx, m); err != nil {
		return nil, lookupErr(err, "menu")
	}
	return m, nil
}

func (s *MenuService) Delete(ctx context.Context, id int64) error {
	if err := s.menus.DeleteMenu(ctx, id); err != nil {
		return lookupErr(err, "menu")
	}
	return nil
}
