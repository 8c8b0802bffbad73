// Package memory is an in-process implementation of the repository ports.
// It is safe for concurrent use and is intended for tests and local
// development without MongoDB.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

type table[T any] struct {
	seq  int64
	rows map[int64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]T)}
}

func (t *table[T]) next() int64 {
	t.seq++
	return t.seq
}

// ordered returns the rows accepted by keep in id order.
func (t *table[T]) ordered(keep func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

func reversed[T any](rows []T) []T {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

// Store keeps every collection in maps guarded by one lock.
type Store struct {
	mu sync.RWMutex

	users         *table[models.User]
	apps          *table[models.App]
	templates     *table[models.AppTemplate]
	menus         *table[models.AppMenu]
	listings      *table[models.BusinessListing]
	products      *table[models.Product]
	events        *table[models.Event]
	customFields  *table[models.CustomField]
	plans         *table[models.ListingPlan]
	affiliates    *table[models.Affiliate]
	tiers         *table[models.AffiliateTier]
	commissions   *table[models.AffiliateCommission]
	payouts       *table[models.AffiliatePayout]
	creatives     *table[models.AffiliateCreative]
	analytics     *table[models.AnalyticsEvent]
	notifications *table[models.Notification]
	pages         *table[models.Page]
	settings      *models.GlobalSettings
}

var (
	_ repositories.UserRepository         = (*Store)(nil)
	_ repositories.AppRepository          = (*Store)(nil)
	_ repositories.TemplateRepository     = (*Store)(nil)
	_ repositories.MenuRepository         = (*Store)(nil)
	_ repositories.ListingRepository      = (*Store)(nil)
	_ repositories.CustomFieldRepository  = (*Store)(nil)
	_ repositories.ListingPlanRepository  = (*Store)(nil)
	_ repositories.AffiliateRepository    = (*Store)(nil)
	_ repositories.TierRepository         = (*Store)(nil)
	_ repositories.CommissionRepository   = (*Store)(nil)
	_ repositories.PayoutRepository       = (*Store)(nil)
	_ repositories.CreativeRepository     = (*Store)(nil)
	_ repositories.AnalyticsRepository    = (*Store)(nil)
	_ repositories.NotificationRepository = (*Store)(nil)
	_ repositories.PageRepository         = (*Store)(nil)
	_ repositories.SettingsRepository     = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         newTable[models.User](),
		apps:          newTable[models.App](),
		templates:     newTable[models.AppTemplate](),
		menus:         newTable[models.AppMenu](),
		listings:      newTable[models.BusinessListing](),
		products:      newTable[models.Product](),
		events:        newTable[models.Event](),
		customFields:  newTable[models.CustomField](),
		plans:         newTable[models.ListingPlan](),
		affiliates:    newTable[models.Affiliate](),
		tiers:         newTable[models.AffiliateTier](),
		commissions:   newTable[models.AffiliateCommission](),
		payouts:       newTable[models.AffiliatePayout](),
		creatives:     newTable[models.AffiliateCreative](),
		analytics:     newTable[models.AnalyticsEvent](),
		notifications: newTable[models.Notification](),
		pages:         newTable[models.Page](),
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneUser(u models.User) models.User {
	u.Roles = cloneStrings(u.Roles)
	u.Capabilities = cloneStrings(u.Capabilities)
	return u
}

func cloneApp(a models.App) models.App {
	a.AppConfig = cloneRaw(a.AppConfig)
	return a
}

// Users -----------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, existing := range s.users.rows {
		if existing.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = s.users.next()
	s.users.rows[user.ID] = cloneUser(*user)
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users.rows {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, models.ErrNoRecord
}

func addToSet(set []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range set {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			set = append(set, v)
		}
	}
	return set
}

func pull(set []string, values ...string) []string {
	out := set[:0]
	for _, existing := range set {
		drop := false
		for _, v := range values {
			if existing == v {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, existing)
		}
	}
	return out
}

func (s *Store) GrantCapabilities(_ context.Context, id int64, role string, caps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.rows[id]
	if !ok {
		return models.ErrNoRecord
	}
	u = cloneUser(u)
	u.Capabilities = addToSet(u.Capabilities, caps...)
	if role != "" {
		u.Roles = addToSet(u.Roles, role)
	}
	u.UpdatedAt = time.Now().UTC()
	s.users.rows[id] = u
	return nil
}

func (s *Store) RevokeCapabilities(_ context.Context, id int64, role string, caps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.rows[id]
	if !ok {
		return models.ErrNoRecord
	}
	u = cloneUser(u)
	u.Capabilities = pull(u.Capabilities, caps...)
	if role != "" {
		u.Roles = pull(u.Roles, role)
	}
	u.UpdatedAt = time.Now().UTC()
	s.users.rows[id] = u
	return nil
}

func (s *Store) SetFCMToken(_ context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.rows[id]
	if !ok {
		return models.ErrNoRecord
	}
	u.FCMToken = token
	s.users.rows[id] = u
	return nil
}

// Apps ------------------------------------------------------------------------

func (s *Store) CreateApp(_ context.Context, app *models.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apps.rows {
		if existing.AppUUID == app.AppUUID {
			return repositories.ErrDuplicate
		}
	}
	app.ID = s.apps.next()
	s.apps.rows[app.ID] = cloneApp(*app)
	return nil
}

func (s *Store) UpdateApp(_ context.Context, app *models.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps.rows[app.ID]; !ok {
		return models.ErrNoRecord
	}
	s.apps.rows[app.ID] = cloneApp(*app)
	return nil
}

func (s *Store) DeleteApp(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.apps.rows, id)
	return nil
}

func (s *Store) GetApp(_ context.Context, id int64) (*models.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	app = cloneApp(app)
	return &app, nil
}

func (s *Store) GetAppByUUID(_ context.Context, appUUID string) (*models.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, app := range s.apps.rows {
		if app.AppUUID == appUUID {
			app = cloneApp(app)
			return &app, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) ListApps(_ context.Context, userID int64) ([]models.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := s.apps.ordered(func(a models.App) bool { return userID == 0 || a.UserID == userID })
	for i := range apps {
		apps[i] = cloneApp(apps[i])
	}
	return reversed(apps), nil
}

func (s *Store) CountApps(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.apps.rows)), nil
}

// Templates and menus ---------------------------------------------------------

func (s *Store) CreateTemplate(_ context.Context, t *models.AppTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.templates.next()
	s.templates.rows[t.ID] = *t
	return nil
}

func (s *Store) UpdateTemplate(_ context.Context, t *models.AppTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates.rows[t.ID]; !ok {
		return models.ErrNoRecord
	}
	s.templates.rows[t.ID] = *t
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.templates.rows, id)
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id int64) (*models.AppTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &t, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]models.AppTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates.ordered(nil), nil
}

func (s *Store) CreateMenu(_ context.Context, m *models.AppMenu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.menus.next()
	s.menus.rows[m.ID] = *m
	return nil
}

func (s *Store) UpdateMenu(_ context.Context, m *models.AppMenu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menus.rows[m.ID]; !ok {
		return models.ErrNoRecord
	}
	s.menus.rows[m.ID] = *m
	return nil
}

func (s *Store) DeleteMenu(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menus.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.menus.rows, id)
	return nil
}

func (s *Store) GetMenu(_ context.Context, id int64) (*models.AppMenu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &m, nil
}

func (s *Store) ListMenus(_ context.Context) ([]models.AppMenu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.menus.ordered(nil), nil
}

// Listings --------------------------------------------------------------------

func (s *Store) CreateListing(_ context.Context, l *models.BusinessListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.listings.next()
	s.listings.rows[l.ID] = *l
	return nil
}

func (s *Store) UpdateListing(_ context.Context, l *models.BusinessListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings.rows[l.ID]; !ok {
		return models.ErrNoRecord
	}
	s.listings.rows[l.ID] = *l
	return nil
}

func (s *Store) DeleteListing(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.listings.rows, id)
	for pid, p := range s.products.rows {
		if p.ListingID == id {
			delete(s.products.rows, pid)
		}
	}
	for eid, e := range s.events.rows {
		if e.ListingID == id {
			delete(s.events.rows, eid)
		}
	}
	return nil
}

func (s *Store) GetListing(_ context.Context, id int64) (*models.BusinessListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &l, nil
}

func (s *Store) ListListings(_ context.Context, filter repositories.ListingFilter) ([]models.BusinessListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	listings := s.listings.ordered(func(l models.BusinessListing) bool {
		if filter.UserID != 0 && l.UserID != filter.UserID {
			return false
		}
		if filter.Status != "" && l.Status != filter.Status {
			return false
		}
		return search == "" || strings.Contains(strings.ToLower(l.ListingName), search)
	})
	return reversed(listings), nil
}

func (s *Store) SetListingStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings.rows[id]
	if !ok {
		return models.ErrNoRecord
	}
	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	s.listings.rows[id] = l
	return nil
}

func (s *Store) CountListings(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.listings.rows)), nil
}

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.products.next()
	s.products.rows[p.ID] = *p
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products.rows[p.ID]; !ok {
		return models.ErrNoRecord
	}
	s.products.rows[p.ID] = *p
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.products.rows, id)
	return nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &p, nil
}

func (s *Store) ListProducts(_ context.Context, listingID int64) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products.ordered(func(p models.Product) bool { return p.ListingID == listingID }), nil
}

func (s *Store) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.events.next()
	s.events.rows[e.ID] = *e
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events.rows[e.ID]; !ok {
		return models.ErrNoRecord
	}
	s.events.rows[e.ID] = *e
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.events.rows, id)
	return nil
}

func (s *Store) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &e, nil
}

func (s *Store) ListEvents(_ context.Context, listingID int64) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events.ordered(func(e models.Event) bool { return e.ListingID == listingID })
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

// Custom fields and plans -----------------------------------------------------

func (s *Store) CreateCustomField(_ context.Context, f *models.CustomField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.customFields.rows {
		if existing.AppliesTo == f.AppliesTo && existing.FieldSlug == f.FieldSlug {
			return repositories.ErrDuplicate
		}
	}
	f.ID = s.customFields.next()
	s.customFields.rows[f.ID] = *f
	return nil
}

func (s *Store) UpdateCustomField(_ context.Context, f *models.CustomField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customFields.rows[f.ID]; !ok {
		return models.ErrNoRecord
	}
	for id, existing := range s.customFields.rows {
		if id != f.ID && existing.AppliesTo == f.AppliesTo && existing.FieldSlug == f.FieldSlug {
			return repositories.ErrDuplicate
		}
	}
	s.customFields.rows[f.ID] = *f
	return nil
}

func (s *Store) DeleteCustomField(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customFields.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.customFields.rows, id)
	return nil
}

func (s *Store) GetCustomField(_ context.Context, id int64) (*models.CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.customFields.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &f, nil
}

func (s *Store) GetCustomFieldBySlug(_ context.Context, appliesTo, slug string) (*models.CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.customFields.rows {
		if f.AppliesTo == appliesTo && f.FieldSlug == slug {
			return &f, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) ListCustomFields(_ context.Context, appliesTo string) ([]models.CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customFields.ordered(func(f models.CustomField) bool {
		return appliesTo == "" || f.AppliesTo == appliesTo
	}), nil
}

func (s *Store) CreatePlan(_ context.Context, p *models.ListingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.plans.next()
	s.plans.rows[p.ID] = *p
	return nil
}

func (s *Store) UpdatePlan(_ context.Context, p *models.ListingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans.rows[p.ID]; !ok {
		return models.ErrNoRecord
	}
	s.plans.rows[p.ID] = *p
	return nil
}

func (s *Store) DeletePlan(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.plans.rows, id)
	return nil
}

func (s *Store) GetPlan(_ context.Context, id int64) (*models.ListingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &p, nil
}

func (s *Store) ListPlans(_ context.Context) ([]models.ListingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans.ordered(nil), nil
}
