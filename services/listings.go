package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
)

// ListingService manages business listings with their products, events,
// custom field definitions and plans.
type ListingService struct {
	listings repositories.ListingRepository
	fields   repositories.CustomFieldRepository
	plans    repositories.ListingPlanRepository
	notifier Notifier
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewListingService(listings repositories.ListingRepository, fields repositories.CustomFieldRepository, plans repositories.ListingPlanRepository, notifier Notifier, validate *validator.Validate, log *zap.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		fields:   fields,
		plans:    plans,
		notifier: notifier,
		validate: validate,
		log:      log,
		now:      time.Now,
	}
}

func (s *ListingService) canModerate(p security.Principal) bool {
	return p.Can(security.PermManageListings)
}

// SaveListing creates or updates a listing. Listings created by their owner
// start pending; only moderators choose or change a status.
func (s *ListingService) SaveListing(ctx context.Context, p security.Principal, in *models.BusinessListing) (*models.BusinessListing, error) {
	now := s.now().UTC()
	moderator := s.canModerate(p)

	if in.ID == 0 {
		if !moderator || in.UserID == 0 {
			in.UserID = p.UserID
		}
		if !moderator || in.Status == "" {
			in.Status = models.ListingStatusPending
		}
		in.CreatedAt = now
	} else {
		existing, err := s.GetListing(ctx, p, in.ID)
		if err != nil {
			return nil, err
		}
		if !moderator || in.UserID == 0 {
			in.UserID = existing.UserID
		}
		if !moderator || in.Status == "" {
			in.Status = existing.Status
		}
		in.CreatedAt = existing.CreatedAt
	}
	in.UpdatedAt = now

	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	if in.PlanID != 0 {
		if _, err := s.plans.GetPlan(ctx, in.PlanID); err != nil {
			if errors.Is(err, models.ErrNoRecord) {
				return nil, models.ErrValidation("plan_id")
			}
			return nil, models.ErrPersistence(err)
		}
	}
	if err := s.checkCustomValues(ctx, in.CustomFields); err != nil {
		return nil, err
	}

	if in.ID == 0 {
		if err := s.listings.CreateListing(ctx, in); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return in, nil
	}
	if err := s.listings.UpdateListing(ctx, in); err != nil {
		return nil, lookupErr(err, "listing")
	}
	return in, nil
}

// checkCustomValues validates submitted values against the active listing
// field definitions. Values for unknown slugs are kept untouched.
func (s *ListingService) checkCustomValues(ctx context.Context, raw json.RawMessage) error {
	values := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &values); err != nil {
			return models.ErrValidation("custom_fields")
		}
	}
	defs, err := s.fields.ListCustomFields(ctx, models.CustomFieldScopeListing)
	if err != nil {
		return models.ErrPersistence(err)
	}
	for _, def := range defs {
		if !def.IsActive {
			continue
		}
		v, ok := values[def.FieldSlug]
		if !ok || isEmptyValue(v) {
			if def.IsRequired {
				return models.ErrValidation(def.FieldSlug)
			}
			continue
		}
		if !validCustomValue(def, v) {
			return models.ErrValidation(def.FieldSlug)
		}
	}
	return nil
}

func isEmptyValue(v json.RawMessage) bool {
	switch strings.TrimSpace(string(v)) {
	case "", "null", `""`, "[]":
		return true
	}
	return false
}

func validCustomValue(def models.CustomField, v json.RawMessage) bool {
	switch def.FieldType {
	case "number":
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			_, err = n.Float64()
			return err == nil
		}
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return false
		}
		_, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		return err == nil
	case "checkbox":
		var b bool
		if json.Unmarshal(v, &b) == nil {
			return true
		}
		var picked []string
		if err := json.Unmarshal(v, &picked); err != nil {
			return false
		}
		for _, choice := range picked {
			if len(def.FieldOptions) > 0 && !contains(def.FieldOptions, choice) {
				return false
			}
		}
		return true
	}

	var str string
	if err := json.Unmarshal(v, &str); err != nil {
		return false
	}
	str = strings.TrimSpace(str)
	switch def.FieldType {
	case "email":
		_, err := mail.ParseAddress(str)
		return err == nil
	case "url":
		u, err := url.ParseRequestURI(str)
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	case "date":
		_, err := time.Parse("2006-01-02", str)
		return err == nil
	case "select", "radio":
		return contains(def.FieldOptions, str)
	default:
		return true
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// GetListing returns a listing p may manage.
func (s *ListingService) GetListing(ctx context.Context, p security.Principal, id int64) (*models.BusinessListing, error) {
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "listing")
	}
	if err := authorizeOwned(p, security.PermManageOwnListings, security.PermManageListings, l.UserID, "listing"); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteListing removes a listing together with its products and events.
func (s *ListingService) DeleteListing(ctx context.Context, p security.Principal, id int64) error {
	if _, err := s.GetListing(ctx, p, id); err != nil {
		return err
	}
	if err := s.listings.DeleteListing(ctx, id); err != nil {
		return lookupErr(err, "listing")
	}
	return nil
}

func (s *ListingService) ListListings(ctx context.Context, filter repositories.ListingFilter) ([]models.BusinessListing, error) {
	listings, err := s.listings.ListListings(ctx, filter)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return listings, nil
}

// PublicListings lists active listings, optionally filtered by a search term.
func (s *ListingService) PublicListings(ctx context.Context, search string) ([]models.BusinessListing, error) {
	return s.ListListings(ctx, repositories.ListingFilter{Status: models.ListingStatusActive, Search: search})
}

// UpdateListingStatus moderates a listing and tells its owner.
func (s *ListingService) UpdateListingStatus(ctx context.Context, id int64, status string) (*models.BusinessListing, error) {
	switch status {
	case models.ListingStatusPending, models.ListingStatusActive, models.ListingStatusInactive:
	default:
		return nil, models.ErrValidation("status")
	}
	if err := s.listings.SetListingStatus(ctx, id, status); err != nil {
		return nil, lookupErr(err, "listing")
	}
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "listing")
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("Your listing %q is now %s.", l.ListingName, status)
		if _, err := s.notifier.Notify(ctx, l.UserID, NotifyListingStatus, "Listing status updated", msg, ""); err != nil {
			s.log.Warn("listing status notification failed", zap.Int64("listing_id", id), zap.Error(err))
		}
	}
	return l, nil
}

// Products

func (s *ListingService) ListProducts(ctx context.Context, p security.Principal, listingID int64) ([]models.Product, error) {
	if _, err := s.GetListing(ctx, p, listingID); err != nil {
		return nil, err
	}
	products, err := s.listings.ListProducts(ctx, listingID)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return products, nil
}

// SaveProduct creates or updates a product under a listing p manages. A
// product cannot be moved to another listing.
func (s *ListingService) SaveProduct(ctx context.Context, p security.Principal, in *models.Product) (*models.Product, error) {
	now := s.now().UTC()
	if in.ID != 0 {
		existing, err := s.listings.GetProduct(ctx, in.ID)
		if err != nil {
			return nil, lookupErr(err, "product")
		}
		in.ListingID = existing.ListingID
		in.CreatedAt = existing.CreatedAt
	} else {
		in.CreatedAt = now
	}
	if _, err := s.GetListing(ctx, p, in.ListingID); err != nil {
		if in.ID != 0 && models.IsKind(err, models.KindNotFound) {
			return nil, models.ErrNotFound("product")
		}
		return nil, err
	}
	in.UpdatedAt = now
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	if in.ID == 0 {
		if err := s.listings.CreateProduct(ctx, in); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return in, nil
	}
	if err := s.listings.UpdateProduct(ctx, in); err != nil {
		return nil, lookupErr(err, "product")
	}
	return in, nil
}

func (s *ListingService) DeleteProduct(ctx context.Context, p security.Principal, id int64) error {
	product, err := s.listings.GetProduct(ctx, id)
	if err != nil {
		return lookupErr(err, "product")
	}
	if _, err := s.GetListing(ctx, p, product.ListingID); err != nil {
		return models.ErrNotFound("product")
	}
	if err := s.listings.DeleteProduct(ctx, id); err != nil {
		return lookupErr(err, "product")
	}
	return nil
}

// Events

func (s *ListingService) ListEvents(ctx context.Context, p security.Principal, listingID int64) ([]models.Event, error) {
	if _, err := s.GetListing(ctx, p, listingID); err != nil {
		return nil, err
	}
	events, err := s.listings.ListEvents(ctx, listingID)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return events, nil
}

func (s *ListingService) SaveEvent(ctx context.Context, p security.Principal, in *models.Event) (*models.Event, error) {
	now := s.now().UTC()
	if in.ID != 0 {
		existing, err := s.listings.GetEvent(ctx, in.ID)
		if err != nil {
			return nil, lookupErr(err, "event")
		}
		in.ListingID = existing.ListingID
		in.CreatedAt = existing.CreatedAt
	} else {
		in.CreatedAt = now
	}
	if _, err := s.GetListing(ctx, p, in.ListingID); err != nil {
		if in.ID != 0 && models.IsKind(err, models.KindNotFound) {
			return nil, models.ErrNotFound("event")
		}
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, models.ErrValidation("start_date")
	}
	if !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, models.ErrValidation("end_date")
	}
	in.UpdatedAt = now
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	if in.ID == 0 {
		if err := s.listings.CreateEvent(ctx, in); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return in, nil
	}
	if err := s.listings.UpdateEvent(ctx, in); err != nil {
		return nil, lookupErr(err, "event")
	}
	return in, nil
}

func (s *ListingService) DeleteEvent(ctx context.Context, p security.Principal, id int64) error {
	event, err := s.listings.GetEvent(ctx, id)
	if err != nil {
		return lookupErr(err, "event")
	}
	if _, err := s.GetListing(ctx, p, event.ListingID); err != nil {
		return models.ErrNotFound("event")
	}
	if err := s.listings.DeleteEvent(ctx, id); err != nil {
		return lookupErr(err, "event")
	}
	return nil
}

// Custom field definitions

func (s *ListingService) ListCustomFields(ctx context.Context, appliesTo string) ([]models.CustomField, error) {
	fields, err := s.fields.ListCustomFields(ctx, appliesTo)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return fields, nil
}

// SaveCustomField stores a field definition; the slug must be unique within
// its applies_to scope and choice types need options.
func (s *ListingService) SaveCustomField(ctx context.Context, f *models.CustomField) (*models.CustomField, error) {
	now := s.now().UTC()
	if err := s.validate.Struct(f); err != nil {
		return nil, validationErr(err)
	}
	if (f.FieldType == "select" || f.FieldType == "radio") && len(f.FieldOptions) == 0 {
		return nil, models.ErrValidation("field_options")
	}

	taken, err := s.fields.GetCustomFieldBySlug(ctx, f.AppliesTo, f.FieldSlug)
	switch {
	case err == nil && taken.ID != f.ID:
		return nil, models.ErrConflict("field_slug already exists")
	case err != nil && !errors.Is(err, models.ErrNoRecord):
		return nil, models.ErrPersistence(err)
	}

	f.UpdatedAt = now
	if f.ID == 0 {
		f.CreatedAt = now
		err = s.fields.CreateCustomField(ctx, f)
	} else {
		var existing *models.CustomField
		existing, err = s.fields.GetCustomField(ctx, f.ID)
		if err != nil {
			return nil, lookupErr(err, "custom field")
		}
		f.CreatedAt = existing.CreatedAt
		err = s.fields.UpdateCustomField(ctx, f)
	}
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, models.ErrConflict("field_slug already exists")
	case err != nil:
		return nil, lookupErr(err, "custom field")
	}
	return f, nil
}

func (s *ListingService) DeleteCustomField(ctx context.Context, id int64) error {
	if err := s.fields.DeleteCustomField(ctx, id); err != nil {
		return lookupErr(err, "custom field")
	}
	return nil
}

// Plans

func (s *ListingService) ListPlans(ctx context.Context) ([]models.ListingPlan, error) {
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return plans, nil
}

func (s *ListingService) SavePlan(ctx context.Context, plan *models.ListingPlan) (*models.ListingPlan, error) {
	if len(plan.Features) == 0 {
		plan.Features = json.RawMessage(`[]`)
	}
	if err := s.validate.Struct(plan); err != nil {
		return nil, validationErr(err)
	}
	now := s.now().UTC()
	plan.UpdatedAt = now
	if plan.ID == 0 {
		plan.CreatedAt = now
		if err := s.plans.CreatePlan(ctx, plan); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return plan, nil
	}
	existing, err := s.plans.GetPlan(ctx, plan.ID)
	if err != nil {
		return nil, lookupErr(err, "listing plan")
	}
	plan.CreatedAt = existing.CreatedAt
	if err := s.plans.UpdatePlan(ctx, plan); err != nil {
		return nil, lookupErr(err, "listing plan")
	}
	return plan, nil
}

func (s *ListingService) DeletePlan(ctx context.Context, id int64) error {
	if err := s.plans.DeletePlan(ctx, id); err != nil {
		return lookupErr(err, "listing plan")
	}
	return nil
}
