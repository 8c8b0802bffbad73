package services

import (
	"context"
	"time"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

const defaultReportWindow = 30 * 24 * time.Hour

// AnalyticsService records counted events and reports on them.
type AnalyticsService struct {
	events repositories.AnalyticsRepository
	now    func() time.Time
}

func NewAnalyticsService(events repositories.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{events: events, now: time.Now}
}

// Track records one event of a known type.
func (s *AnalyticsService) Track(ctx context.Context, eventType, objectType, objectID string, userID int64) error {
	if !contains(models.AnalyticsEventTypes, eventType) {
		return models.ErrValidation("event_type")
	}
	switch objectType {
	case "", "app", "listing", "affiliate":
	default:
		return models.ErrValidation("object_type")
	}
	e := &models.AnalyticsEvent{
		EventType:  eventType,
		ObjectType: objectType,
		ObjectID:   objectID,
		UserID:     userID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.events.RecordEvent(ctx, e); err != nil {
		return models.ErrPersistence(err)
	}
	return nil
}

// Report aggregates events per type and per day. A zero range covers the
// last thirty days. A given end date covers its whole day; the stored
// range is half-open.
func (s *AnalyticsService) Report(ctx context.Context, q models.AnalyticsQuery) (*models.AnalyticsReport, error) {
	if q.To.IsZero() {
		q.To = s.now().UTC()
	} else {
		q.To = q.To.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-defaultReportWindow)
	}
	q.From = q.From.UTC()
	if !q.From.Before(q.To) {
		return nil, models.ErrValidation("date_to")
	}

	totals, daily, err := s.events.Aggregate(ctx, q)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	if totals == nil {
		totals = map[string]int64{}
	}
	for _, t := range models.AnalyticsEventTypes {
		if _, ok := totals[t]; !ok {
			totals[t] = 0
		}
	}
	if daily == nil {
		daily = []models.DailyCount{}
	}
	return &models.AnalyticsReport{From: q.From, To: q.To, Totals: totals, Daily: daily}, nil
}
