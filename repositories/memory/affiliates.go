package memory

import (
	"context"
	"time"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

func (s *Store) CreateAffiliate(_ context.Context, a *models.Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.affiliates.rows {
		if existing.UserID == a.UserID || existing.AffiliateCode == a.AffiliateCode {
			return repositories.ErrDuplicate
		}
	}
	a.ID = s.affiliates.next()
	s.affiliates.rows[a.ID] = *a
	return nil
}

func (s *Store) GetAffiliate(_ context.Context, id int64) (*models.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.affiliates.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &a, nil
}

func (s *Store) findAffiliate(match func(models.Affiliate) bool) (*models.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.affiliates.rows {
		if match(a) {
			return &a, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) GetAffiliateByUser(_ context.Context, userID int64) (*models.Affiliate, error) {
	return s.findAffiliate(func(a models.Affiliate) bool { return a.UserID == userID })
}

func (s *Store) GetAffiliateByCode(_ context.Context, code string) (*models.Affiliate, error) {
	return s.findAffiliate(func(a models.Affiliate) bool { return a.AffiliateCode == code })
}

func (s *Store) ListAffiliates(_ context.Context, status string) ([]models.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	affiliates := s.affiliates.ordered(func(a models.Affiliate) bool {
		return status == "" || a.AffiliateStatus == status
	})
	return reversed(affiliates), nil
}

// mutateAffiliate applies fn to a stored affiliate under the write lock.
func (s *Store) mutateAffiliate(id int64, fn func(*models.Affiliate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.affiliates.rows[id]
	if !ok {
		return models.ErrNoRecord
	}
	if err := fn(&a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	s.affiliates.rows[id] = a
	return nil
}

func (s *Store) SetAffiliateStatus(_ context.Context, id int64, status string) error {
	return s.mutateAffiliate(id, func(a *models.Affiliate) error {
		a.AffiliateStatus = status
		return nil
	})
}

func (s *Store) SetAffiliateTier(_ context.Context, id, tierID int64) error {
	return s.mutateAffiliate(id, func(a *models.Affiliate) error {
		a.CurrentTierID = tierID
		return nil
	})
}

func (s *Store) CountAffiliatesInTier(_ context.Context, tierID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.affiliates.rows {
		if a.CurrentTierID == tierID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreditWallet(_ context.Context, id int64, amount float64) error {
	return s.mutateAffiliate(id, func(a *models.Affiliate) error {
		a.WalletBalance += amount
		return nil
	})
}

func (s *Store) DebitWallet(_ context.Context, id int64, amount float64) error {
	return s.mutateAffiliate(id, func(a *models.Affiliate) error {
		if a.WalletBalance < amount {
			return repositories.ErrInsufficientFunds
		}
		a.WalletBalance -= amount
		return nil
	})
}

func (s *Store) IncrementClicks(_ context.Context, id int64) error {
	return s.mutateAffiliate(id, func(a *models.Affiliate) error {
		a.TotalClicks++
		return nil
	})
}

// Tiers -----------------------------------------------------------------------

func (s *Store) CreateTier(_ context.Context, t *models.AffiliateTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.tiers.next()
	s.tiers.rows[t.ID] = *t
	return nil
}

func (s *Store) UpdateTier(_ context.Context, t *models.AffiliateTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiers.rows[t.ID]; !ok {
		return models.ErrNoRecord
	}
	s.tiers.rows[t.ID] = *t
	return nil
}

func (s *Store) DeleteTier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiers.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.tiers.rows, id)
	return nil
}

func (s *Store) GetTier(_ context.Context, id int64) (*models.AffiliateTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &t, nil
}

func (s *Store) ListTiers(_ context.Context) ([]models.AffiliateTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiers.ordered(nil), nil
}

// Commissions -----------------------------------------------------------------

func (s *Store) CreateCommission(_ context.Context, c *models.AffiliateCommission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.commissions.next()
	s.commissions.rows[c.ID] = *c
	return nil
}

func (s *Store) GetCommission(_ context.Context, id int64) (*models.AffiliateCommission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commissions.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &c, nil
}

func (s *Store) ListCommissions(_ context.Context, affiliateID int64, status string) ([]models.AffiliateCommission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	commissions := s.commissions.ordered(func(c models.AffiliateCommission) bool {
		if affiliateID != 0 && c.AffiliateID != affiliateID {
			return false
		}
		return status == "" || c.CommissionStatus == status
	})
	return reversed(commissions), nil
}

func (s *Store) TransitionCommission(_ context.Context, id int64, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commissions.rows[id]
	if !ok || c.CommissionStatus != from {
		return false, nil
	}
	c.CommissionStatus = to
	c.UpdatedAt = at
	if to == models.CommissionStatusApproved {
		approved := at
		c.ApprovedAt = &approved
	}
	s.commissions.rows[id] = c
	return true, nil
}

// Payouts ---------------------------------------------------------------------

func (s *Store) CreatePayout(_ context.Context, p *models.AffiliatePayout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.payouts.next()
	s.payouts.rows[p.ID] = *p
	return nil
}

func (s *Store) GetPayout(_ context.Context, id int64) (*models.AffiliatePayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payouts.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &p, nil
}

func (s *Store) ListPayouts(_ context.Context, affiliateID int64, status string) ([]models.AffiliatePayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payouts := s.payouts.ordered(func(p models.AffiliatePayout) bool {
		if affiliateID != 0 && p.AffiliateID != affiliateID {
			return false
		}
		return status == "" || p.PayoutStatus == status
	})
	return reversed(payouts), nil
}

func (s *Store) TransitionPayout(_ context.Context, id int64, from string, change repositories.PayoutChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts.rows[id]
	if !ok || p.PayoutStatus != from {
		return false, nil
	}
	p.PayoutStatus = change.Status
	p.UpdatedAt = change.At
	if change.TransactionID != "" {
		p.TransactionID = change.TransactionID
	}
	if change.AdminNote != "" {
		p.AdminNote = change.AdminNote
	}
	if change.CompletedAt != nil {
		completed := *change.CompletedAt
		p.CompletedAt = &completed
	}
	s.payouts.rows[id] = p
	return true, nil
}

// Creatives -------------------------------------------------------------------

func (s *Store) CreateCreative(_ context.Context, c *models.AffiliateCreative) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.creatives.next()
	s.creatives.rows[c.ID] = *c
	return nil
}

func (s *Store) UpdateCreative(_ context.Context, c *models.AffiliateCreative) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creatives.rows[c.ID]; !ok {
		return models.ErrNoRecord
	}
	s.creatives.rows[c.ID] = *c
	return nil
}

func (s *Store) DeleteCreative(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creatives.rows[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.creatives.rows, id)
	return nil
}

func (s *Store) GetCreative(_ context.Context, id int64) (*models.AffiliateCreative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creatives.rows[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &c, nil
}

func (s *Store) ListCreatives(_ context.Context, tierID int64, activeOnly bool) ([]models.AffiliateCreative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creatives.ordered(func(c models.AffiliateCreative) bool {
		if tierID >= 0 && c.TierID != 0 && c.TierID != tierID {
			return false
		}
		return !activeOnly || c.IsActive
	}), nil
}
