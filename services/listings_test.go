package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
	"github.com/aslaburda/aslp_backend/utils"
)

func newListingService(store *memory.Store, notifier Notifier) *ListingService {
	return NewListingService(store, store, store, notifier, utils.NewValidator(), zap.NewNop())
}

func TestListing_OwnerCreatesPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)

	l, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Cafe", Status: models.ListingStatusActive, UserID: 77})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusPending, l.Status)
	assert.Equal(t, owner.UserID, l.UserID)

	// an owner edit keeps the moderated status
	require.NoError(t, store.SetListingStatus(ctx, l.ID, models.ListingStatusActive))
	updated, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ID: l.ID, ListingName: "Cafe Bar", Status: models.ListingStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, updated.Status)
	assert.Equal(t, "Cafe Bar", updated.ListingName)
}

func TestListing_ModeratorChoosesOwnerAndStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	admin := adminPrincipal(t, store)

	l, err := svc.SaveListing(ctx, admin, &models.BusinessListing{ListingName: "Bakery", Status: models.ListingStatusActive, UserID: 42})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, l.Status)
	assert.Equal(t, int64(42), l.UserID)
}

func TestListing_OtherOwnerSeesNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	alice := createUser(t, store, "alice@example.com", models.RoleBusinessOwner)
	bob := createUser(t, store, "bob@example.com", models.RoleBusinessOwner)

	l, err := svc.SaveListing(ctx, alice, &models.BusinessListing{ListingName: "Alice's"})
	require.NoError(t, err)

	_, err = svc.GetListing(ctx, bob, l.ID)
	assertKind(t, err, models.KindNotFound)
	_, err = svc.SaveListing(ctx, bob, &models.BusinessListing{ID: l.ID, ListingName: "Hijack"})
	assertKind(t, err, models.KindNotFound)
	assertKind(t, svc.DeleteListing(ctx, bob, l.ID), models.KindNotFound)

	_, err = svc.SaveProduct(ctx, bob, &models.Product{ListingID: l.ID, ProductName: "Cake"})
	assertKind(t, err, models.KindNotFound)

	got, err := store.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's", got.ListingName)
}

func TestListing_UnknownPlan(t *testing.T) {
	store := memory.New()
	svc := newListingService(store, nil)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)

	_, err := svc.SaveListing(context.Background(), owner, &models.BusinessListing{ListingName: "Cafe", PlanID: 9})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "plan_id", appErr.Message)
}

func TestListing_CustomFieldValues(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)

	defs := []models.CustomField{
		{FieldName: "Seats", FieldSlug: "seats", FieldType: "number", AppliesTo: models.CustomFieldScopeListing, IsRequired: true, IsActive: true},
		{FieldName: "Cuisine", FieldSlug: "cuisine", FieldType: "select", FieldOptions: []string{"thai", "italian"}, AppliesTo: models.CustomFieldScopeListing, IsActive: true},
		{FieldName: "Menu", FieldSlug: "menu", FieldType: "url", AppliesTo: models.CustomFieldScopeListing, IsActive: true},
		{FieldName: "Opened", FieldSlug: "opened", FieldType: "date", AppliesTo: models.CustomFieldScopeListing, IsActive: true},
		{FieldName: "Retired", FieldSlug: "retired", FieldType: "number", AppliesTo: models.CustomFieldScopeListing, IsRequired: true},
		{FieldName: "Size", FieldSlug: "size", FieldType: "number", AppliesTo: models.CustomFieldScopeProduct, IsRequired: true, IsActive: true},
	}
	for i := range defs {
		_, err := svc.SaveCustomField(ctx, &defs[i])
		require.NoError(t, err)
	}

	cases := []struct {
		name   string
		values string
		field  string
	}{
		{"missing required", `{}`, "seats"},
		{"empty required", `{"seats":""}`, "seats"},
		{"bad number", `{"seats":"many"}`, "seats"},
		{"bad option", `{"seats":4,"cuisine":"french"}`, "cuisine"},
		{"bad url", `{"seats":4,"menu":"ftp://x"}`, "menu"},
		{"bad date", `{"seats":4,"opened":"May 1st"}`, "opened"},
		{"not an object", `[1,2]`, "custom_fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Cafe", CustomFields: json.RawMessage(tc.values)})
			appErr := assertKind(t, err, models.KindValidation)
			assert.Equal(t, tc.field, appErr.Message)
		})
	}

	raw := `{"seats":"12","cuisine":"thai","menu":"https://cafe.example.com/menu","opened":"2020-01-31","legacy":"kept"}`
	l, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Cafe", CustomFields: json.RawMessage(raw)})
	require.NoError(t, err)
	got, err := store.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(got.CustomFields))
}

func TestListing_CustomFieldDefinitions(t *testing.T) {
	ctx := context.Background()
	svc := newListingService(memory.New(), nil)

	_, err := svc.SaveCustomField(ctx, &models.CustomField{FieldName: "Kind", FieldSlug: "kind", FieldType: "radio", AppliesTo: "listing"})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "field_options", appErr.Message)

	_, err = svc.SaveCustomField(ctx, &models.CustomField{FieldName: "Kind", FieldSlug: "kind", FieldType: "colour", AppliesTo: "listing"})
	appErr = assertKind(t, err, models.KindValidation)
	assert.Equal(t, "field_type", appErr.Message)

	first, err := svc.SaveCustomField(ctx, &models.CustomField{FieldName: "Kind", FieldSlug: "kind", FieldType: "text", AppliesTo: "listing"})
	require.NoError(t, err)
	_, err = svc.SaveCustomField(ctx, &models.CustomField{FieldName: "Kind 2", FieldSlug: "kind", FieldType: "text", AppliesTo: "listing"})
	appErr = assertKind(t, err, models.KindConflict)
	assert.Equal(t, "field_slug already exists", appErr.Message)

	// the same slug is free in another scope
	_, err = svc.SaveCustomField(ctx, &models.CustomField{FieldName: "Kind", FieldSlug: "kind", FieldType: "text", AppliesTo: "product"})
	require.NoError(t, err)

	first.FieldName = "Type"
	renamed, err := svc.SaveCustomField(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Type", renamed.FieldName)

	listingFields, err := svc.ListCustomFields(ctx, "listing")
	require.NoError(t, err)
	assert.Len(t, listingFields, 1)

	require.NoError(t, svc.DeleteCustomField(ctx, first.ID))
	assertKind(t, svc.DeleteCustomField(ctx, first.ID), models.KindNotFound)
}

func TestListing_EventDates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)
	l, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Hall"})
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	_, err = svc.SaveEvent(ctx, owner, &models.Event{ListingID: l.ID, EventName: "Gig"})
	assertKind(t, err, models.KindValidation)
	_, err = svc.SaveEvent(ctx, owner, &models.Event{ListingID: l.ID, EventName: "Gig", StartDate: start, EndDate: start.Add(-time.Hour)})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "end_date", appErr.Message)

	e, err := svc.SaveEvent(ctx, owner, &models.Event{ListingID: l.ID, EventName: "Gig", StartDate: start, EndDate: start.Add(3 * time.Hour)})
	require.NoError(t, err)

	// moving an event to another listing is ignored
	other, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Other"})
	require.NoError(t, err)
	moved, err := svc.SaveEvent(ctx, owner, &models.Event{ID: e.ID, ListingID: other.ID, EventName: "Gig 2", StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, l.ID, moved.ListingID)

	events, err := svc.ListEvents(ctx, owner, l.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListing_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newListingService(store, nil)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)
	l, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Shop"})
	require.NoError(t, err)
	p, err := svc.SaveProduct(ctx, owner, &models.Product{ListingID: l.ID, ProductName: "Mug", Price: 8})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteListing(ctx, owner, l.ID))
	_, err = store.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNoRecord)
}

func TestListing_StatusNotifiesOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	notifier := &recordingNotifier{}
	svc := newListingService(store, notifier)
	owner := createUser(t, store, "owner@example.com", models.RoleBusinessOwner)
	l, err := svc.SaveListing(ctx, owner, &models.BusinessListing{ListingName: "Shop"})
	require.NoError(t, err)

	updated, err := svc.UpdateListingStatus(ctx, l.ID, models.ListingStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, updated.Status)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, owner.UserID, notifier.notes[0].UserID)
	assert.Equal(t, NotifyListingStatus, notifier.notes[0].Type)

	public, err := svc.PublicListings(ctx, "sh")
	require.NoError(t, err)
	assert.Len(t, public, 1)

	_, err = svc.UpdateListingStatus(ctx, l.ID, "archived")
	assertKind(t, err, models.KindValidation)
	_, err = svc.UpdateListingStatus(ctx, 404, models.ListingStatusActive)
	assertKind(t, err, models.KindNotFound)
}

func TestListing_PlanFeaturesDefault(t *testing.T) {
	ctx := context.Background()
	svc := newListingService(memory.New(), nil)

	plan, err := svc.SavePlan(ctx, &models.ListingPlan{PlanName: "Basic"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(plan.Features))

	_, err = svc.SavePlan(ctx, &models.ListingPlan{PlanName: "Broken", Price: -1})
	assertKind(t, err, models.KindValidation)
}
