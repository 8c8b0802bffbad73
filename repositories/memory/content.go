package memory

import (
	"context"
	"sort"

	"github.com/aslaburda/aslp_backend/models"
)

func (s *Store) RecordEvent(_ context.Context, e *models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.analytics.next()
	s.analytics.rows[e.ID] = *e
	return nil
}

func (s *Store) Aggregate(_ context.Context, q models.AnalyticsQuery) (map[string]int64, []models.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ day, eventType string }
	counts := make(map[key]int64)
	totals := make(map[string]int64)
	for _, e := range s.analytics.rows {
		if e.CreatedAt.Before(q.From) || !e.CreatedAt.Before(q.To) {
			continue
		}
		if q.ObjectType != "" && e.ObjectType != q.ObjectType {
			continue
		}
		if q.ObjectID != "" && e.ObjectID != q.ObjectID {
			continue
		}
		counts[key{e.CreatedAt.UTC().Format("2006-01-02"), e.EventType}]++
		totals[e.EventType]++
	}

	daily := make([]models.DailyCount, 0, len(counts))
	for k, n := range counts {
		daily = append(daily, models.DailyCount{Day: k.day, EventType: k.eventType, Count: n})
	}
	sort.Slice(daily, func(i, j int) bool {
		if daily[i].Day != daily[j].Day {
			return daily[i].Day < daily[j].Day
		}
		return daily[i].EventType < daily[j].EventType
	})
	return totals, daily, nil
}

// Notifications ---------------------------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.notifications.next()
	s.notifications.rows[n.ID] = *n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notifications := s.notifications.ordered(func(n models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.IsRead)
	})
	return reversed(notifications), nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications.rows[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	s.notifications.rows[id] = n
	return true, nil
}

func (s *Store) DeleteNotification(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications.rows[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(s.notifications.rows, id)
	return true, nil
}

// Pages -----------------------------------------------------------------------

func (s *Store) CreatePage(_ context.Context, p *models.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.pages.next()
	s.pages.rows[p.ID] = *p
	return nil
}

// SeedPage stores p with its preset id, for fixtures that need specific ids.
func (s *Store) SeedPage(p models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID > s.pages.seq {
		s.pages.seq = p.ID
	}
	s.pages.rows[p.ID] = p
}

func (s *Store) GetPageBySlug(_ context.Context, slug string) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages.ordered(nil) {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) ListPublishedPages(_ context.Context) ([]models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := s.pages.ordered(func(p models.Page) bool { return p.Status == models.PageStatusPublish })
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].CreatedAt.Before(pages[j].CreatedAt) })
	return pages, nil
}

func (s *Store) DeletePages(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.pages.rows[id]; ok {
			delete(s.pages.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// Settings --------------------------------------------------------------------

func (s *Store) GetSettings(_ context.Context) (*models.GlobalSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, models.ErrNoRecord
	}
	out := *s.settings
	out.Features = make(map[string]bool, len(s.settings.Features))
	for k, v := range s.settings.Features {
		out.Features[k] = v
	}
	return &out, nil
}

func (s *Store) SaveSettings(_ context.Context, settings *models.GlobalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *settings
	stored.Features = make(map[string]bool, len(settings.Features))
	for k, v := range settings.Features {
		stored.Features[k] = v
	}
	s.settings = &stored
	return nil
}
