package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aslaburda/aslp_backend/models"
)

func (s *MongoStore) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	id, err := s.nextID(ctx, collAffiliates)
	if err != nil {
		return err
	}
	a.ID = id
	return s.insert(ctx, collAffiliates, a)
}

func (s *MongoStore) GetAffiliate(ctx context.Context, id int64) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := s.findOne(ctx, collAffiliates, bson.M{"_id": id}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoStore) GetAffiliateByUser(ctx context.Context, userID int64) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := s.findOne(ctx, collAffiliates, bson.M{"user_id": userID}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoStore) GetAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := s.findOne(ctx, collAffiliates, bson.M{"affiliate_code": code}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoStore) ListAffiliates(ctx context.Context, status string) ([]models.Affiliate, error) {
	filter := bson.M{}
	if status != "" {
		filter["affiliate_status"] = status
	}
	affiliates := []models.Affiliate{}
	if err := s.findAll(ctx, collAffiliates, filter, newestFirst, &affiliates); err != nil {
		return nil, err
	}
	return affiliates, nil
}

func (s *MongoStore) SetAffiliateStatus(ctx context.Context, id int64, status string) error {
	return s.updateByID(ctx, collAffiliates, id, bson.M{"$set": bson.M{
		"affiliate_status": status,
		"updated_at":       time.Now().UTC(),
	}})
}

func (s *MongoStore) SetAffiliateTier(ctx context.Context, id, tierID int64) error {
	return s.updateByID(ctx, collAffiliates, id, bson.M{"$set": bson.M{
		"current_tier_id": tierID,
		"updated_at":      time.Now().UTC(),
	}})
}

func (s *MongoStore) CountAffiliatesInTier(ctx context.Context, tierID int64) (int64, error) {
	return s.count(ctx, collAffiliates, bson.M{"current_tier_id": tierID})
}

func (s *MongoStore) CreditWallet(ctx context.Context, id int64, amount float64) error {
	return s.updateByID(ctx, collAffiliates, id, bson.M{
		"$inc": bson.M{"wallet_balance": amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *MongoStore) DebitWallet(ctx context.Context, id int64, amount float64) error {
	result, err := s.coll(collAffiliates).UpdateOne(ctx,
		bson.M{"_id": id, "wallet_balance": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"wallet_balance": -amount},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := s.GetAffiliate(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (s *MongoStore) IncrementClicks(ctx context.Context, id int64) error {
	return s.updateByID(ctx, collAffiliates, id, bson.M{"$inc": bson.M{"total_clicks": int64(1)}})
}

// Tiers

func (s *MongoStore) CreateTier(ctx context.Context, t *models.AffiliateTier) error {
	id, err := s.nextID(ctx, collTiers)
	if err != nil {
		return err
	}
	t.ID = id
	return s.insert(ctx, collTiers, t)
}

func (s *MongoStore) UpdateTier(ctx context.Context, t *models.AffiliateTier) error {
	return s.replace(ctx, collTiers, t.ID, t)
}

func (s *MongoStore) DeleteTier(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collTiers, id)
}

func (s *MongoStore) GetTier(ctx context.Context, id int64) (*models.AffiliateTier, error) {
	var t models.AffiliateTier
	if err := s.findOne(ctx, collTiers, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoStore) ListTiers(ctx context.Context) ([]models.AffiliateTier, error) {
	tiers := []models.AffiliateTier{}
	if err := s.findAll(ctx, collTiers, bson.M{}, byCreation, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// Commissions

func (s *MongoStore) CreateCommission(ctx context.Context, c *models.AffiliateCommission) error {
	id, err := s.nextID(ctx, collCommissions)
	if err != nil {
		return err
	}
	c.ID = id
	return s.insert(ctx, collCommissions, c)
}

func (s *MongoStore) GetCommission(ctx context.Context, id int64) (*models.AffiliateCommission, error) {
	var c models.AffiliateCommission
	if err := s.findOne(ctx, collCommissions, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) ListCommissions(ctx context.Context, affiliateID int64, status string) ([]models.AffiliateCommission, error) {
	filter := bson.M{}
	if affiliateID != 0 {
		filter["affiliate_id"] = affiliateID
	}
	if status != "" {
		filter["commission_status"] = status
	}
	commissions := []models.AffiliateCommission{}
	if err := s.findAll(ctx, collCommissions, filter, newestFirst, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (s *MongoStore) TransitionCommission(ctx context.Context, id int64, from, to string, at time.Time) (bool, error) {
	set := bson.M{"commission_status": to, "updated_at": at}
	if to == models.CommissionStatusApproved {
		set["approved_at"] = at
	}
	result, err := s.coll(collCommissions).UpdateOne(ctx,
		bson.M{"_id": id, "commission_status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// Payouts

func (s *MongoStore) CreatePayout(ctx context.Context, p *models.AffiliatePayout) error {
	id, err := s.nextID(ctx, collPayouts)
	if err != nil {
		return err
	}
	p.ID = id
	return s.insert(ctx, collPayouts, p)
}

func (s *MongoStore) GetPayout(ctx context.Context, id int64) (*models.AffiliatePayout, error) {
	var p models.AffiliatePayout
	if err := s.findOne(ctx, collPayouts, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListPayouts(ctx context.Context, affiliateID int64, status string) ([]models.AffiliatePayout, error) {
	filter := bson.M{}
	if affiliateID != 0 {
		filter["affiliate_id"] = affiliateID
	}
	if status != "" {
		filter["payout_status"] = status
	}
	payouts := []models.AffiliatePayout{}
	if err := s.findAll(ctx, collPayouts, filter, newestFirst, &payouts); err != nil {
		return nil, err
	}
	return payouts, nil
}

func (s *MongoStore) TransitionPayout(ctx context.Context, id int64, from string, change PayoutChange) (bool, error) {
	set := bson.M{"payout_status": change.Status, "updated_at": change.At}
	if change.TransactionID != "" {
		set["transaction_id"] = change.TransactionID
	}
	if change.AdminNote != "" {
		set["admin_note"] = change.AdminNote
	}
	if change.CompletedAt != nil {
		set["completed_at"] = *change.CompletedAt
	}
	result, err := s.coll(collPayouts).UpdateOne(ctx,
		bson.M{"_id": id, "payout_status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// Creatives

func (s *MongoStore) CreateCreative(ctx context.Context, c *models.AffiliateCreative) error {
	id, err := s.nextID(ctx, collCreatives)
	if err != nil {
		return err
	}
	c.ID = id
	return s.insert(ctx, collCreatives, c)
}

func (s *MongoStore) UpdateCreative(ctx context.Context, c *models.AffiliateCreative) error {
	return s.replace(ctx, collCreatives, c.ID, c)
}

func (s *MongoStore) DeleteCreative(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collCreatives, id)
}

func (s *MongoStore) GetCreative(ctx context.Context, id int64) (*models.AffiliateCreative, error) {
	var c models.AffiliateCreative
	if err := s.findOne(ctx, collCreatives, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) ListCreatives(ctx context.Context, tierID int64, activeOnly bool) ([]models.AffiliateCreative, error) {
	filter := bson.M{}
	if tierID >= 0 {
		filter["tier_id"] = bson.M{"$in": []int64{0, tierID}}
	}
	if activeOnly {
		filter["is_active"] = true
	}
	creatives := []models.AffiliateCreative{}
	if err := s.findAll(ctx, collCreatives, filter, byCreation, &creatives); err != nil {
		return nil, err
	}
	return creatives, nil
}
