package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
)

func TestTools_RepairDuplicatesKeepsEarliest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []int64{5, 2, 9} {
		store.SeedPage(models.Page{ID: id, Title: "About Us", Status: models.PageStatusPublish, CreatedAt: created})
	}
	store.SeedPage(models.Page{ID: 3, Title: "Contact", Status: models.PageStatusPublish, CreatedAt: created})
	store.SeedPage(models.Page{ID: 4, Title: "Contact", Status: "draft", CreatedAt: created})

	svc := NewToolsService(store, zap.NewNop())
	groups, err := svc.DetectDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.DuplicateGroup{Title: "About Us", IDs: []int64{2, 5, 9}}, groups[0])

	report, err := svc.RepairDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DeletedCount)
	assert.Equal(t, []int64{5, 9}, report.DeletedIDs)
	assert.Equal(t, []string{"About Us"}, report.Titles)

	pages, err := store.ListPublishedPages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	report, err = svc.RepairDuplicates(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.DeletedCount)
	assert.Empty(t, report.DeletedIDs)
}

func TestTools_RepairDuplicatesOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SeedPage(models.Page{ID: 1, Title: "Home", Status: models.PageStatusPublish, CreatedAt: base.Add(time.Hour)})
	store.SeedPage(models.Page{ID: 7, Title: "Home", Status: models.PageStatusPublish, CreatedAt: base})

	report, err := NewToolsService(store, zap.NewNop()).RepairDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, report.DeletedIDs)
}

func TestTools_MissingPages(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewToolsService(store, zap.NewNop())
	admin := adminPrincipal(t, store)

	store.SeedPage(models.Page{ID: 1, Title: "My Apps", Slug: "my-apps", Status: models.PageStatusPublish})

	missing, err := svc.MissingPages(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, len(RequiredPages)-1)
	assert.NotContains(t, missing, "My Apps")

	report, err := svc.CreateMissingPages(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"My Apps"}, report.Existing)
	assert.Len(t, report.Created, len(RequiredPages)-1)
	for _, page := range report.Created {
		assert.Equal(t, models.PageStatusPublish, page.Status)
		assert.Equal(t, admin.UserID, page.AuthorID)
		assert.NotZero(t, page.ID)
	}

	missing, err = svc.MissingPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
