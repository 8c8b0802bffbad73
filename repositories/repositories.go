// Package repositories holds the storage ports used by the domain managers
// and their MongoDB implementations. The memory subpackage provides an
// in-process implementation for tests and local development.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/aslaburda/aslp_backend/models"
)

// ErrInsufficientFunds is returned when a wallet debit would go negative.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate key")

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GrantCapabilities(ctx context.Context, id int64, role string, caps []string) error
	RevokeCapabilities(ctx context.Context, id int64, role string, caps []string) error
	SetFCMToken(ctx context.Context, id int64, token string) error
}

type AppRepository interface {
	CreateApp(ctx context.Context, app *models.App) error
	UpdateApp(ctx context.Context, app *models.App) error
	DeleteApp(ctx context.Context, id int64) error
	GetApp(ctx context.Context, id int64) (*models.App, error)
	GetAppByUUID(ctx context.Context, appUUID string) (*models.App, error)
	// ListApps returns apps of userID, or every app when userID is 0.
	ListApps(ctx context.Context, userID int64) ([]models.App, error)
	CountApps(ctx context.Context) (int64, error)
}

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, t *models.AppTemplate) error
	UpdateTemplate(ctx context.Context, t *models.AppTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	GetTemplate(ctx context.Context, id int64) (*models.AppTemplate, error)
	ListTemplates(ctx context.Context) ([]models.AppTemplate, error)
}

type MenuRepository interface {
	CreateMenu(ctx context.Context, m *models.AppMenu) error
	UpdateMenu(ctx context.Context, m *models.AppMenu) error
	DeleteMenu(ctx context.Context, id int64) error
	GetMenu(ctx context.Context, id int64) (*models.AppMenu, error)
	ListMenus(ctx context.Context) ([]models.AppMenu, error)
}

// ListingFilter narrows ListListings. Zero values match everything.
type ListingFilter struct {
	UserID int64
	Status string
	Search string
}

type ListingRepository interface {
	CreateListing(ctx context.Context, l *models.BusinessListing) error
	UpdateListing(ctx context.Context, l *models.BusinessListing) error
	// DeleteListing removes the listing with its products and events.
	DeleteListing(ctx context.Context, id int64) error
	GetListing(ctx context.Context, id int64) (*models.BusinessListing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]models.BusinessListing, error)
	SetListingStatus(ctx context.Context, id int64, status string) error
	CountListings(ctx context.Context) (int64, error)

	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, listingID int64) ([]models.Product, error)

	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context, listingID int64) ([]models.Event, error)
}

type CustomFieldRepository interface {
	CreateCustomField(ctx context.Context, f *models.CustomField) error
	UpdateCustomField(ctx context.Context, f *models.CustomField) error
	DeleteCustomField(ctx context.Context, id int64) error
	GetCustomField(ctx context.Context, id int64) (*models.CustomField, error)
	GetCustomFieldBySlug(ctx context.Context, appliesTo, slug string) (*models.CustomField, error)
	// ListCustomFields returns fields for a scope, or all when appliesTo is empty.
	ListCustomFields(ctx context.Context, appliesTo string) ([]models.CustomField, error)
}

type ListingPlanRepository interface {
	CreatePlan(ctx context.Context, p *models.ListingPlan) error
	UpdatePlan(ctx context.Context, p *models.ListingPlan) error
	DeletePlan(ctx context.Context, id int64) error
	GetPlan(ctx context.Context, id int64) (*models.ListingPlan, error)
	ListPlans(ctx context.Context) ([]models.ListingPlan, error)
}

type AffiliateRepository interface {
	CreateAffiliate(ctx context.Context, a *models.Affiliate) error
	GetAffiliate(ctx context.Context, id int64) (*models.Affiliate, error)
	GetAffiliateByUser(ctx context.Context, userID int64) (*models.Affiliate, error)
	GetAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error)
	// ListAffiliates returns affiliates with status, or all when status is empty.
	ListAffiliates(ctx context.Context, status string) ([]models.Affiliate, error)
	SetAffiliateStatus(ctx context.Context, id int64, status string) error
	SetAffiliateTier(ctx context.Context, id, tierID int64) error
	CountAffiliatesInTier(ctx context.Context, tierID int64) (int64, error)
	CreditWallet(ctx context.Context, id int64, amount float64) error
	// DebitWallet fails with ErrInsufficientFunds rather than going negative.
	DebitWallet(ctx context.Context, id int64, amount float64) error
	IncrementClicks(ctx context.Context, id int64) error
}

type TierRepository interface {
	CreateTier(ctx context.Context, t *models.AffiliateTier) error
	UpdateTier(ctx context.Context, t *models.AffiliateTier) error
	DeleteTier(ctx context.Context, id int64) error
	GetTier(ctx context.Context, id int64) (*models.AffiliateTier, error)
	ListTiers(ctx context.Context) ([]models.AffiliateTier, error)
}

type CommissionRepository interface {
	CreateCommission(ctx context.Context, c *models.AffiliateCommission) error
	GetCommission(ctx context.Context, id int64) (*models.AffiliateCommission, error)
	ListCommissions(ctx context.Context, affiliateID int64, status string) ([]models.AffiliateCommission, error)
	// TransitionCommission moves a commission from one status to another and
	// reports whether this call performed the change.
	TransitionCommission(ctx context.Context, id int64, from, to string, at time.Time) (bool, error)
}

// PayoutChange carries the fields stamped by a payout status transition.
type PayoutChange struct {
	Status        string
	TransactionID string
	AdminNote     string
	CompletedAt   *time.Time
	At            time.Time
}

type PayoutRepository interface {
	CreatePayout(ctx context.Context, p *models.AffiliatePayout) error
	GetPayout(ctx context.Context, id int64) (*models.AffiliatePayout, error)
	ListPayouts(ctx context.Context, affiliateID int64, status string) ([]models.AffiliatePayout, error)
	// TransitionPayout applies change only while the payout is still in from.
	TransitionPayout(ctx context.Context, id int64, from string, change PayoutChange) (bool, error)
}

type CreativeRepository interface {
	CreateCreative(ctx context.Context, c *models.AffiliateCreative) error
	UpdateCreative(ctx context.Context, c *models.AffiliateCreative) error
	DeleteCreative(ctx context.Context, id int64) error
	GetCreative(ctx context.Context, id int64) (*models.AffiliateCreative, error)
	// ListCreatives returns creatives for tierID plus tier-independent ones;
	// tierID -1 returns everything.
	ListCreatives(ctx context.Context, tierID int64, activeOnly bool) ([]models.AffiliateCreative, error)
}

type AnalyticsRepository interface {
	RecordEvent(ctx context.Context, e *models.AnalyticsEvent) error
	Aggregate(ctx context.Context, q models.AnalyticsQuery) (map[string]int64, []models.DailyCount, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error)
	DeleteNotification(ctx context.Context, id, userID int64) (bool, error)
}

type PageRepository interface {
	CreatePage(ctx context.Context, p *models.Page) error
	GetPageBySlug(ctx context.Context, slug string) (*models.Page, error)
	ListPublishedPages(ctx context.Context) ([]models.Page, error)
	DeletePages(ctx context.Context, ids []int64) (int64, error)
}

type SettingsRepository interface {
	// GetSettings returns models.ErrNoRecord when nothing was saved yet.
	GetSettings(ctx context.Context) (*models.GlobalSettings, error)
	SaveSettings(ctx context.Context, s *models.GlobalSettings) error
}

// Store is every repository port on one backend.
type Store interface {
	UserRepository
	AppRepository
	TemplateRepository
	MenuRepository
	ListingRepository
	CustomFieldRepository
	ListingPlanRepository
	AffiliateRepository
	TierRepository
	CommissionRepository
	PayoutRepository
	CreativeRepository
	AnalyticsRepository
	NotificationRepository
	PageRepository
	SettingsRepository
}
