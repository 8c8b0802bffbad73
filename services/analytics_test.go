package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
)

func TestAnalytics_TrackRejectsUnknownTypes(t *testing.T) {
	svc := NewAnalyticsService(memory.New())
	ctx := context.Background()

	appErr := assertKind(t, svc.Track(ctx, "page_scroll", "app", "x", 0), models.KindValidation)
	assert.Equal(t, "event_type", appErr.Message)
	appErr = assertKind(t, svc.Track(ctx, models.EventAppView, "widget", "x", 0), models.KindValidation)
	assert.Equal(t, "object_type", appErr.Message)
	assert.NoError(t, svc.Track(ctx, models.EventInstall, "", "", 0))
}

func TestAnalytics_Report(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(memory.New())
	day := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	at := func(ts time.Time, eventType, objectID string) {
		svc.now = func() time.Time { return ts }
		require.NoError(t, svc.Track(ctx, eventType, "app", objectID, 0))
	}
	at(day.Add(-40*24*time.Hour), models.EventAppView, "a")
	at(day.Add(-2*24*time.Hour), models.EventAppView, "a")
	at(day.Add(-2*24*time.Hour), models.EventAppView, "b")
	at(day, models.EventInstall, "a")

	svc.now = func() time.Time { return day.Add(time.Hour) }
	report, err := svc.Report(ctx, models.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Totals[models.EventAppView])
	assert.Equal(t, int64(1), report.Totals[models.EventInstall])
	assert.Equal(t, int64(0), report.Totals[models.EventReferralClick])
	assert.Equal(t, []models.DailyCount{
		{Day: "2026-03-08", EventType: models.EventAppView, Count: 2},
		{Day: "2026-03-10", EventType: models.EventInstall, Count: 1},
	}, report.Daily)

	// an end date covers its whole day
	report, err = svc.Report(ctx, models.AnalyticsQuery{
		From:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		ObjectID: "a",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Totals[models.EventInstall])
	assert.Equal(t, int64(0), report.Totals[models.EventAppView])
}

func TestAnalytics_ReportEmptyAndInvalidRange(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(memory.New())

	report, err := svc.Report(ctx, models.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Len(t, report.Totals, len(models.AnalyticsEventTypes))
	assert.NotNil(t, report.Daily)
	assert.Empty(t, report.Daily)

	_, err = svc.Report(ctx, models.AnalyticsQuery{
		From: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "date_to", appErr.Message)
}
