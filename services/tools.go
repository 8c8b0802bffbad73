package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
)

type requiredPage struct {
	Title   string
	Slug    string
	Content string
}

// RequiredPages are the front-end pages the self-service surface links to.
var RequiredPages = []requiredPage{
	{Title: "App Builder", Slug: "app-builder", Content: "[aslp_app_builder]"},
	{Title: "My Apps", Slug: "my-apps", Content: "[aslp_user_apps]"},
	{Title: "Business Directory", Slug: "business-directory", Content: "[aslp_business_directory]"},
	{Title: "My Listings", Slug: "my-listings", Content: "[aslp_user_listings]"},
	{Title: "Affiliate Registration", Slug: "affiliate-registration", Content: "[aslp_affiliate_registration]"},
	{Title: "Affiliate Dashboard", Slug: "affiliate-dashboard", Content: "[aslp_affiliate_dashboard]"},
	{Title: "Notifications", Slug: "notifications", Content: "[aslp_notifications]"},
}

// ToolsService holds the content maintenance tools.
type ToolsService struct {
	pages repositories.PageRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewToolsService(pages repositories.PageRepository, log *zap.Logger) *ToolsService {
	return &ToolsService{pages: pages, log: log, now: time.Now}
}

// MissingPages lists the titles of required pages that do not exist yet.
func (s *ToolsService) MissingPages(ctx context.Context) ([]string, error) {
	missing := []string{}
	for _, rp := range RequiredPages {
		_, err := s.pages.GetPageBySlug(ctx, rp.Slug)
		switch {
		case errors.Is(err, models.ErrNoRecord):
			missing = append(missing, rp.Title)
		case err != nil:
			return nil, models.ErrPersistence(err)
		}
	}
	return missing, nil
}

// CreateMissingPages publishes every required page that is missing. A page
// that cannot be created is logged and reported by title; the others are
// still created.
func (s *ToolsService) CreateMissingPages(ctx context.Context, p security.Principal) (*models.MissingPagesReport, error) {
	report := &models.MissingPagesReport{Created: []models.Page{}, Existing: []string{}}
	for _, rp := range RequiredPages {
		_, err := s.pages.GetPageBySlug(ctx, rp.Slug)
		if err == nil {
			report.Existing = append(report.Existing, rp.Title)
			continue
		}
		if !errors.Is(err, models.ErrNoRecord) {
			return nil, models.ErrPersistence(err)
		}

		now := s.now().UTC()
		page := models.Page{
			Title:     rp.Title,
			Slug:      rp.Slug,
			Content:   rp.Content,
			Status:    models.PageStatusPublish,
			AuthorID:  p.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.pages.CreatePage(ctx, &page); err != nil {
			s.log.Error("required page not created", zap.String("slug", rp.Slug), zap.Error(err))
			report.Failed = append(report.Failed, rp.Title)
			continue
		}
		report.Created = append(report.Created, page)
	}
	return report, nil
}

// duplicateGroups groups published pages sharing a title. Ids in a group run
// from earliest created to latest, ties broken by the lower id.
func duplicateGroups(pages []models.Page) []models.DuplicateGroup {
	sorted := make([]models.Page, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	byTitle := make(map[string][]int64)
	for _, page := range sorted {
		byTitle[page.Title] = append(byTitle[page.Title], page.ID)
	}
	groups := []models.DuplicateGroup{}
	for title, ids := range byTitle {
		if len(ids) > 1 {
			groups = append(groups, models.DuplicateGroup{Title: title, IDs: ids})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups
}

// DetectDuplicates returns groups of published pages with the same title.
func (s *ToolsService) DetectDuplicates(ctx context.Context) ([]models.DuplicateGroup, error) {
	pages, err := s.pages.ListPublishedPages(ctx)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return duplicateGroups(pages), nil
}

// RepairDuplicates permanently deletes all but the earliest page of every
// duplicate group.
func (s *ToolsService) RepairDuplicates(ctx context.Context) (*models.DuplicateRepairReport, error) {
	groups, err := s.DetectDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	report := &models.DuplicateRepairReport{Titles: []string{}, DeletedIDs: []int64{}}
	for _, g := range groups {
		report.Titles = append(report.Titles, g.Title)
		report.DeletedIDs = append(report.DeletedIDs, g.IDs[1:]...)
	}
	if len(report.DeletedIDs) == 0 {
		return report, nil
	}
	n, err := s.pages.DeletePages(ctx, report.DeletedIDs)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	report.DeletedCount = int(n)
	s.log.Info("duplicate pages removed", zap.Int("deleted", report.DeletedCount), zap.Strings("titles", report.Titles))
	return report, nil
}
