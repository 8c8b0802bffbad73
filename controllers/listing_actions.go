package controllers

import (
	"context"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	"github.com/aslaburda/aslp_backend/utils"
)

func listingInput(p *utils.Params) *models.BusinessListing {
	return &models.BusinessListing{
		ID:               p.Int("id", false),
		ListingName:      p.String("listing_name", true),
		Description:      p.Text("description", false),
		Address:          p.String("address", false),
		City:             p.String("city", false),
		State:            p.String("state", false),
		ZipCode:          p.String("zip_code", false),
		Country:          p.String("country", false),
		Phone:            p.String("phone", false),
		Email:            p.Email("email", false),
		Website:          p.URL("website", false),
		LogoURL:          p.URL("logo_url", false),
		FeaturedImageURL: p.URL("featured_image_url", false),
		PlanID:           p.Int("plan_id", false),
		CustomFields:     p.JSON("custom_fields", false),
	}
}

// ListingActions covers listings, products, events, custom fields and plans.
func ListingActions(listings *services.ListingService) []Action {
	admin := func(name string, perm security.Permission, feature string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopeAdmin, Permission: perm, Feature: feature, Handle: h}
	}
	self := func(name, feature string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopePublic, Permission: security.PermManageOwnListings, Feature: feature, Handle: h}
	}
	byID := func(field string, fn func(ctx context.Context, rc *RequestContext, id int64) error) Handler {
		return func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id := rc.Params.Int(field, true)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			if err := fn(ctx, rc, id); err != nil {
				return nil, err
			}
			return deleted(id), nil
		}
	}

	return []Action{
		admin("aslp_admin_get_listings", security.PermManageListings, models.FeatureListings,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				filter := repositories.ListingFilter{
					UserID: p.Int("user_id", false),
					Status: p.Enum("status", false, "", models.ListingStatusPending, models.ListingStatusActive, models.ListingStatusInactive),
					Search: p.String("search", false),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				list, err := listings.ListListings(ctx, filter)
				return listOf(list), err
			}),
		admin("aslp_admin_update_listing_status", security.PermManageListings, models.FeatureListings,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				id := p.Int("id", true)
				status := p.Enum("status", true, "", models.ListingStatusPending, models.ListingStatusActive, models.ListingStatusInactive)
				if err := p.Err(); err != nil {
					return nil, err
				}
				return listings.UpdateListingStatus(ctx, id, status)
			}),

		admin("aslp_get_all_custom_fields", security.PermManageCustomFields, models.FeatureCustomFields,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				scope := rc.Params.Enum("applies_to", false, "", models.CustomFieldScopeListing, models.CustomFieldScopeProduct, models.CustomFieldScopeEvent)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				list, err := listings.ListCustomFields(ctx, scope)
				return listOf(list), err
			}),
		admin("aslp_add_update_custom_field", security.PermManageCustomFields, models.FeatureCustomFields,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				f := &models.CustomField{
					ID:           p.Int("id", false),
					FieldName:    p.String("field_name", true),
					FieldType:    p.Enum("field_type", true, "", models.CustomFieldTypes...),
					FieldOptions: p.Strings("field_options", false),
					AppliesTo:    p.Enum("applies_to", false, models.CustomFieldScopeListing, models.CustomFieldScopeListing, models.CustomFieldScopeProduct, models.CustomFieldScopeEvent),
					IsRequired:   p.Bool("is_required"),
					IsActive:     p.BoolDefault("is_active", true),
				}
				f.FieldSlug = p.Slug("field_slug", false)
				if f.FieldSlug == "" && f.FieldName != "" {
					f.FieldSlug = utils.Slugify(f.FieldName)
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return listings.SaveCustomField(ctx, f)
			}),
		admin("aslp_delete_custom_field", security.PermManageCustomFields, models.FeatureCustomFields,
			byID("id", func(ctx context.Context, _ *RequestContext, id int64) error {
				return listings.DeleteCustomField(ctx, id)
			})),

		admin("aslp_get_all_listing_plans", security.PermManageListingPlans, models.FeatureListingPlans,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := listings.ListPlans(ctx)
				return listOf(list), err
			}),
		admin("aslp_add_update_listing_plan", security.PermManageListingPlans, models.FeatureListingPlans,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				plan := &models.ListingPlan{
					ID:           p.Int("id", false),
					PlanName:     p.String("plan_name", true),
					Description:  p.Text("description", false),
					Price:        p.Float("price", false),
					DurationDays: int(p.Int("duration_days", false)),
					Features:     p.JSON("features", false),
					IsActive:     p.BoolDefault("is_active", true),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return listings.SavePlan(ctx, plan)
			}),
		admin("aslp_delete_listing_plan", security.PermManageListingPlans, models.FeatureListingPlans,
			byID("id", func(ctx context.Context, _ *RequestContext, id int64) error {
				return listings.DeletePlan(ctx, id)
			})),

		self("aslp_get_user_listings", models.FeatureListings,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := listings.ListListings(ctx, repositories.ListingFilter{UserID: rc.Principal.UserID})
				return listOf(list), err
			}),
		self("aslp_create_update_listing", models.FeatureListings,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				l := listingInput(rc.Params)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				return listings.SaveListing(ctx, rc.Principal, l)
			}),
		self("aslp_delete_listing", models.FeatureListings,
			byID("id", func(ctx context.Context, rc *RequestContext, id int64) error {
				return listings.DeleteListing(ctx, rc.Principal, id)
			})),

		self("aslp_get_listing_products", models.FeatureProducts,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				listingID := rc.Params.Int("listing_id", true)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				list, err := listings.ListProducts(ctx, rc.Principal, listingID)
				return listOf(list), err
			}),
		self("aslp_create_update_product", models.FeatureProducts,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				id := p.Int("id", false)
				prod := &models.Product{
					ID:          id,
					ListingID:   p.Int("listing_id", id == 0),
					ProductName: p.String("product_name", true),
					Description: p.Text("description", false),
					Price:       p.Float("price", false),
					ImageURL:    p.URL("image_url", false),
					IsAvailable: p.BoolDefault("is_available", true),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return listings.SaveProduct(ctx, rc.Principal, prod)
			}),
		self("aslp_delete_product", models.FeatureProducts,
			byID("id", func(ctx context.Context, rc *RequestContext, id int64) error {
				return listings.DeleteProduct(ctx, rc.Principal, id)
			})),

		self("aslp_get_listing_events", models.FeatureEvents,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				listingID := rc.Params.Int("listing_id", true)
				if err := rc.Params.Err(); err != nil {
					return nil, err
				}
				list, err := listings.ListEvents(ctx, rc.Principal, listingID)
				return listOf(list), err
			}),
		self("aslp_create_update_event", models.FeatureEvents,
			func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				p := rc.Params
				id := p.Int("id", false)
				e := &models.Event{
					ID:          id,
					ListingID:   p.Int("listing_id", id == 0),
					EventName:   p.String("event_name", true),
					Description: p.Text("description", false),
					StartDate:   p.Time("start_date", true),
					EndDate:     p.Time("end_date", false),
					Location:    p.String("location", false),
					ImageURL:    p.URL("image_url", false),
				}
				if err := p.Err(); err != nil {
					return nil, err
				}
				return listings.SaveEvent(ctx, rc.Principal, e)
			}),
		self("aslp_delete_event", models.FeatureEvents,
			byID("id", func(ctx context.Context, rc *RequestContext, id int64) error {
				return listings.DeleteEvent(ctx, rc.Principal, id)
			})),

		{
			Name:    "aslp_get_public_listings",
			Scope:   security.ScopePublic,
			Feature: models.FeatureListings,
			Public:  true,
			Handle: func(ctx context.Context, rc *RequestContext) (interface{}, error) {
				list, err := listings.PublicListings(ctx, rc.Params.String("search", false))
				return listOf(list), err
			},
		},
	}
}
