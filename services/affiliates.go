package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/metrics"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/utils"
)

const codeAttempts = 5

// AffiliateStores groups the repositories the affiliate program needs.
type AffiliateStores struct {
	Affiliates  repositories.AffiliateRepository
	Tiers       repositories.TierRepository
	Commissions repositories.CommissionRepository
	Payouts     repositories.PayoutRepository
	Creatives   repositories.CreativeRepository
	Users       repositories.UserRepository
	Analytics   repositories.AnalyticsRepository
}

// AffiliateService runs the referral program: membership, tiers, creatives,
// commissions, payouts and click tracking.
type AffiliateService struct {
	AffiliateStores
	notifier Notifier
	validate *validator.Validate
	baseURL  string
	log      *zap.Logger
	now      func() time.Time
}

func NewAffiliateService(stores AffiliateStores, notifier Notifier, validate *validator.Validate, baseURL string, log *zap.Logger) *AffiliateService {
	return &AffiliateService{
		AffiliateStores: stores,
		notifier:        notifier,
		validate:        validate,
		baseURL:         baseURL,
		log:             log,
		now:             time.Now,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// positiveAmount is false for zero, negatives, NaN and infinities.
func positiveAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// ReferralURL is the tracked link an affiliate shares.
func (s *AffiliateService) ReferralURL(code string) string {
	return fmt.Sprintf("%s/r/%s", s.baseURL, code)
}

func (s *AffiliateService) notify(ctx context.Context, userID int64, kind, title, msg string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, kind, title, msg, ""); err != nil {
		s.log.Warn("affiliate notification failed", zap.Int64("user_id", userID), zap.String("type", kind), zap.Error(err))
	}
}

func (s *AffiliateService) notifyAffiliate(ctx context.Context, affiliateID int64, kind, title, msg string) {
	a, err := s.Affiliates.GetAffiliate(ctx, affiliateID)
	if err != nil {
		s.log.Warn("affiliate lookup for notification failed", zap.Int64("affiliate_id", affiliateID), zap.Error(err))
		return
	}
	s.notify(ctx, a.UserID, kind, title, msg)
}

// Membership

// Register enrols the caller as a pending affiliate. The MLM parent comes
// from referrerCode, falling back to the code the user signed up with.
func (s *AffiliateService) Register(ctx context.Context, p security.Principal, referrerCode, paymentEmail string) (*models.Affiliate, error) {
	if _, err := s.Affiliates.GetAffiliateByUser(ctx, p.UserID); err == nil {
		return nil, models.ErrConflict("you are already registered as an affiliate")
	} else if !errors.Is(err, models.ErrNoRecord) {
		return nil, models.ErrPersistence(err)
	}

	if referrerCode == "" {
		if user, err := s.Users.GetUser(ctx, p.UserID); err == nil {
			referrerCode = user.ReferredBy
		}
	}
	var parentID int64
	if referrerCode != "" {
		parent, err := s.Affiliates.GetAffiliateByCode(ctx, referrerCode)
		switch {
		case errors.Is(err, models.ErrNoRecord):
			return nil, models.ErrValidation("referral_code")
		case err != nil:
			return nil, models.ErrPersistence(err)
		}
		parentID = parent.ID
	}

	tierID, err := s.defaultTier(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := utils.GenerateAffiliateCode()
		if err != nil {
			return nil, models.ErrPersistence(err)
		}
		a := &models.Affiliate{
			UserID:          p.UserID,
			AffiliateCode:   code,
			AffiliateStatus: models.AffiliateStatusPending,
			CurrentTierID:   tierID,
			ParentID:        parentID,
			PaymentEmail:    paymentEmail,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err = s.Affiliates.CreateAffiliate(ctx, a)
		if err == nil {
			s.log.Info("affiliate registered", zap.Int64("user_id", p.UserID), zap.String("code", code))
			return a, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, models.ErrPersistence(err)
		}
		// either the code collided or a concurrent registration won
		if _, lookup := s.Affiliates.GetAffiliateByUser(ctx, p.UserID); lookup == nil {
			return nil, models.ErrConflict("you are already registered as an affiliate")
		}
	}
	return nil, models.ErrPersistence(errors.New("could not allocate a unique affiliate code"))
}

// defaultTier is the first active tier, or 0 when none is configured.
func (s *AffiliateService) defaultTier(ctx context.Context) (int64, error) {
	tiers, err := s.Tiers.ListTiers(ctx)
	if err != nil {
		return 0, models.ErrPersistence(err)
	}
	for _, t := range tiers {
		if t.IsActive {
			return t.ID, nil
		}
	}
	return 0, nil
}

func (s *AffiliateService) ListAffiliates(ctx context.Context, status string) ([]models.Affiliate, error) {
	list, err := s.Affiliates.ListAffiliates(ctx, status)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

// UpdateStatus changes an affiliate's status and optionally its tier.
// Activation grants the dashboard and payout capabilities; leaving active
// revokes them.
func (s *AffiliateService) UpdateStatus(ctx context.Context, id int64, status string, tierID int64) (*models.Affiliate, error) {
	switch status {
	case models.AffiliateStatusPending, models.AffiliateStatusActive, models.AffiliateStatusSuspended:
	default:
		return nil, models.ErrValidation("status")
	}
	a, err := s.Affiliates.GetAffiliate(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	if tierID != 0 && tierID != a.CurrentTierID {
		if _, err := s.Tiers.GetTier(ctx, tierID); err != nil {
			if errors.Is(err, models.ErrNoRecord) {
				return nil, models.ErrValidation("tier_id")
			}
			return nil, models.ErrPersistence(err)
		}
		if err := s.Affiliates.SetAffiliateTier(ctx, id, tierID); err != nil {
			return nil, lookupErr(err, "affiliate")
		}
	}

	previous := a.AffiliateStatus
	if err := s.Affiliates.SetAffiliateStatus(ctx, id, status); err != nil {
		if tierID != 0 && tierID != a.CurrentTierID {
			if revertErr := s.Affiliates.SetAffiliateTier(ctx, id, a.CurrentTierID); revertErr != nil {
				s.log.Error("affiliate tier changed without status",
					zap.Int64("affiliate_id", id), zap.Error(err), zap.NamedError("revert_error", revertErr))
			}
		}
		return nil, lookupErr(err, "affiliate")
	}

	caps := make([]string, 0, len(security.AffiliateActivationGrants))
	for _, perm := range security.AffiliateActivationGrants {
		caps = append(caps, string(perm))
	}
	switch {
	case status == models.AffiliateStatusActive:
		if err := s.Users.GrantCapabilities(ctx, a.UserID, models.RoleAffiliate, caps); err != nil {
			return nil, lookupErr(err, "user")
		}
	case previous == models.AffiliateStatusActive:
		if err := s.Users.RevokeCapabilities(ctx, a.UserID, models.RoleAffiliate, caps); err != nil {
			return nil, lookupErr(err, "user")
		}
	}

	if previous != status {
		title := "Affiliate account " + status
		msg := fmt.Sprintf("Your affiliate account %s is now %s.", a.AffiliateCode, status)
		s.notify(ctx, a.UserID, NotifyAffiliateStatus, title, msg)
		if s.notifier != nil && status == models.AffiliateStatusActive {
			body := fmt.Sprintf("Your affiliate account has been approved.\n\nShare your referral link: %s\n", s.ReferralURL(a.AffiliateCode))
			s.notifier.Email(ctx, a.UserID, "Your affiliate account is active", body)
		}
	}

	updated, err := s.Affiliates.GetAffiliate(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	return updated, nil
}

// affiliateOf returns the caller's own affiliate record.
func (s *AffiliateService) affiliateOf(ctx context.Context, p security.Principal) (*models.Affiliate, error) {
	a, err := s.Affiliates.GetAffiliateByUser(ctx, p.UserID)
	if err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	return a, nil
}

// Tiers

func (s *AffiliateService) ListTiers(ctx context.Context) ([]models.AffiliateTier, error) {
	tiers, err := s.Tiers.ListTiers(ctx)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return tiers, nil
}

func (s *AffiliateService) SaveTier(ctx context.Context, t *models.AffiliateTier) (*models.AffiliateTier, error) {
	if err := s.validate.Struct(t); err != nil {
		return nil, validationErr(err)
	}
	now := s.now().UTC()
	t.UpdatedAt = now
	if t.ID == 0 {
		t.CreatedAt = now
		if err := s.Tiers.CreateTier(ctx, t); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return t, nil
	}
	existing, err := s.Tiers.GetTier(ctx, t.ID)
	if err != nil {
		return nil, lookupErr(err, "tier")
	}
	t.CreatedAt = existing.CreatedAt
	if err := s.Tiers.UpdateTier(ctx, t); err != nil {
		return nil, lookupErr(err, "tier")
	}
	return t, nil
}

// DeleteTier refuses to remove a tier that still has affiliates assigned.
func (s *AffiliateService) DeleteTier(ctx context.Context, id int64) error {
	if _, err := s.Tiers.GetTier(ctx, id); err != nil {
		return lookupErr(err, "tier")
	}
	n, err := s.Affiliates.CountAffiliatesInTier(ctx, id)
	if err != nil {
		return models.ErrPersistence(err)
	}
	if n > 0 {
		return models.ErrConflict(fmt.Sprintf("Cannot delete tier: %d affiliate(s) are assigned to it", n))
	}
	if err := s.Tiers.DeleteTier(ctx, id); err != nil {
		return lookupErr(err, "tier")
	}
	return nil
}

// Creatives

// ListCreatives returns every creative; a tierID of -1 means all tiers.
func (s *AffiliateService) ListCreatives(ctx context.Context, tierID int64) ([]models.AffiliateCreative, error) {
	list, err := s.Creatives.ListCreatives(ctx, tierID, false)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

// CreativesFor returns the active creatives available to the caller's tier.
func (s *AffiliateService) CreativesFor(ctx context.Context, p security.Principal) ([]models.AffiliateCreative, error) {
	a, err := s.affiliateOf(ctx, p)
	if err != nil {
		return nil, err
	}
	list, err := s.Creatives.ListCreatives(ctx, a.CurrentTierID, true)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

func (s *AffiliateService) SaveCreative(ctx context.Context, c *models.AffiliateCreative) (*models.AffiliateCreative, error) {
	if err := s.validate.Struct(c); err != nil {
		return nil, validationErr(err)
	}
	if c.CreativeType == models.CreativeTypeImageBanner && c.ImageURL == "" {
		return nil, models.ErrValidation("image_url")
	}
	if c.TierID != 0 {
		if _, err := s.Tiers.GetTier(ctx, c.TierID); err != nil {
			if errors.Is(err, models.ErrNoRecord) {
				return nil, models.ErrValidation("tier_id")
			}
			return nil, models.ErrPersistence(err)
		}
	}
	now := s.now().UTC()
	c.UpdatedAt = now
	if c.ID == 0 {
		c.CreatedAt = now
		if err := s.Creatives.CreateCreative(ctx, c); err != nil {
			return nil, models.ErrPersistence(err)
		}
		return c, nil
	}
	existing, err := s.Creatives.GetCreative(ctx, c.ID)
	if err != nil {
		return nil, lookupErr(err, "creative")
	}
	c.CreatedAt = existing.CreatedAt
	if err := s.Creatives.UpdateCreative(ctx, c); err != nil {
		return nil, lookupErr(err, "creative")
	}
	return c, nil
}

func (s *AffiliateService) DeleteCreative(ctx context.Context, id int64) error {
	if err := s.Creatives.DeleteCreative(ctx, id); err != nil {
		return lookupErr(err, "creative")
	}
	return nil
}

// Commissions

func (s *AffiliateService) ListCommissions(ctx context.Context, affiliateID int64, status string) ([]models.AffiliateCommission, error) {
	list, err := s.Commissions.ListCommissions(ctx, affiliateID, status)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

// UpdateCommissionStatus approves or rejects a pending commission. Approval
// credits the affiliate wallet exactly once: repeating the same decision is
// a no-op and reversing a decided commission is a conflict.
func (s *AffiliateService) UpdateCommissionStatus(ctx context.Context, id int64, status string) (*models.AffiliateCommission, error) {
	if status != models.CommissionStatusApproved && status != models.CommissionStatusRejected {
		return nil, models.ErrValidation("status")
	}
	c, err := s.Commissions.GetCommission(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "commission")
	}

	now := s.now().UTC()
	changed, err := s.Commissions.TransitionCommission(ctx, id, models.CommissionStatusPending, status, now)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	if !changed {
		current, err := s.Commissions.GetCommission(ctx, id)
		if err != nil {
			return nil, lookupErr(err, "commission")
		}
		if current.CommissionStatus == status {
			return current, nil
		}
		return nil, models.ErrConflict("commission is already " + current.CommissionStatus)
	}

	if status == models.CommissionStatusApproved {
		if err := s.Affiliates.CreditWallet(ctx, c.AffiliateID, c.CommissionAmount); err != nil {
			if _, revertErr := s.Commissions.TransitionCommission(ctx, id, models.CommissionStatusApproved, models.CommissionStatusPending, now); revertErr != nil {
				s.log.Error("commission left approved without credit",
					zap.Int64("commission_id", id), zap.Error(err), zap.NamedError("revert_error", revertErr))
			}
			return nil, lookupErr(err, "affiliate")
		}
		metrics.RecordWallet("credit", "commission", c.CommissionAmount)
		s.notifyAffiliate(ctx, c.AffiliateID, NotifyCommission, "Commission approved",
			fmt.Sprintf("A commission of %.2f was added to your wallet.", c.CommissionAmount))
	}

	updated, err := s.Commissions.GetCommission(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "commission")
	}
	return updated, nil
}

// RecordConversion books a pending commission for the referring affiliate
// at its tier's base rate, and one for its MLM parent at the parent tier's
// MLM rate.
func (s *AffiliateService) RecordConversion(ctx context.Context, affiliateID int64, amount float64, reference string) ([]models.AffiliateCommission, error) {
	if !positiveAmount(amount) {
		return nil, models.ErrValidation("amount")
	}
	a, err := s.Affiliates.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	if a.AffiliateStatus != models.AffiliateStatusActive {
		return nil, models.ErrConflict("affiliate is not active")
	}
	tier, err := s.Tiers.GetTier(ctx, a.CurrentTierID)
	if err != nil {
		return nil, lookupErr(err, "tier")
	}

	now := s.now().UTC()
	var booked []models.AffiliateCommission
	direct := models.AffiliateCommission{
		AffiliateID:      a.ID,
		CommissionAmount: roundCents(amount * tier.BaseCommissionRate / 100),
		CommissionStatus: models.CommissionStatusPending,
		CommissionType:   "direct",
		Reference:        reference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Commissions.CreateCommission(ctx, &direct); err != nil {
		return nil, models.ErrPersistence(err)
	}
	booked = append(booked, direct)

	if a.ParentID == 0 {
		return booked, nil
	}
	parent, err := s.Affiliates.GetAffiliate(ctx, a.ParentID)
	if err != nil || parent.AffiliateStatus != models.AffiliateStatusActive {
		return booked, nil
	}
	parentTier, err := s.Tiers.GetTier(ctx, parent.CurrentTierID)
	if err != nil || parentTier.MLMCommissionRate <= 0 {
		return booked, nil
	}
	mlm := models.AffiliateCommission{
		AffiliateID:      parent.ID,
		CommissionAmount: roundCents(amount * parentTier.MLMCommissionRate / 100),
		CommissionStatus: models.CommissionStatusPending,
		CommissionType:   "mlm",
		Reference:        reference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Commissions.CreateCommission(ctx, &mlm); err != nil {
		s.log.Error("mlm commission not recorded", zap.Int64("parent_id", parent.ID), zap.Error(err))
		return booked, nil
	}
	return append(booked, mlm), nil
}

// Payouts

func (s *AffiliateService) ListPayouts(ctx context.Context, affiliateID int64, status string) ([]models.AffiliatePayout, error) {
	list, err := s.Payouts.ListPayouts(ctx, affiliateID, status)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

// RequestPayout moves amount from the caller's wallet into a pending payout.
func (s *AffiliateService) RequestPayout(ctx context.Context, p security.Principal, amount float64, method string) (*models.AffiliatePayout, error) {
	if !positiveAmount(amount) {
		return nil, models.ErrValidation("amount")
	}
	a, err := s.affiliateOf(ctx, p)
	if err != nil {
		return nil, err
	}
	if a.AffiliateStatus != models.AffiliateStatusActive {
		return nil, models.ErrAuthorization()
	}
	amount = roundCents(amount)
	if err := s.Affiliates.DebitWallet(ctx, a.ID, amount); err != nil {
		if errors.Is(err, repositories.ErrInsufficientFunds) {
			return nil, models.ErrValidationf("Insufficient wallet balance")
		}
		return nil, lookupErr(err, "affiliate")
	}

	now := s.now().UTC()
	payout := &models.AffiliatePayout{
		AffiliateID:  a.ID,
		PayoutAmount: amount,
		PayoutStatus: models.PayoutStatusPending,
		PayoutMethod: method,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Payouts.CreatePayout(ctx, payout); err != nil {
		if refundErr := s.Affiliates.CreditWallet(ctx, a.ID, amount); refundErr != nil {
			s.log.Error("payout debit not refunded", zap.Int64("affiliate_id", a.ID), zap.Float64("amount", amount), zap.Error(refundErr))
		}
		return nil, models.ErrPersistence(err)
	}
	metrics.RecordWallet("debit", "payout_request", amount)
	return payout, nil
}

// UpdatePayoutStatus settles a pending payout. Completion stamps the
// completion time and a transaction id; cancellation refunds the wallet
// exactly once.
func (s *AffiliateService) UpdatePayoutStatus(ctx context.Context, id int64, status, transactionID, note string) (*models.AffiliatePayout, error) {
	if status != models.PayoutStatusCompleted && status != models.PayoutStatusCancelled {
		return nil, models.ErrValidation("status")
	}
	payout, err := s.Payouts.GetPayout(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "payout")
	}

	now := s.now().UTC()
	change := repositories.PayoutChange{Status: status, AdminNote: note, At: now}
	if status == models.PayoutStatusCompleted {
		if transactionID == "" {
			transactionID = uuid.New().String()
		}
		change.TransactionID = transactionID
		change.CompletedAt = &now
	}
	changed, err := s.Payouts.TransitionPayout(ctx, id, models.PayoutStatusPending, change)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	if !changed {
		current, err := s.Payouts.GetPayout(ctx, id)
		if err != nil {
			return nil, lookupErr(err, "payout")
		}
		if current.PayoutStatus == status {
			return current, nil
		}
		return nil, models.ErrConflict("payout is already " + current.PayoutStatus)
	}

	if status == models.PayoutStatusCancelled {
		if err := s.Affiliates.CreditWallet(ctx, payout.AffiliateID, payout.PayoutAmount); err != nil {
			revert := repositories.PayoutChange{Status: models.PayoutStatusPending, At: now}
			if _, revertErr := s.Payouts.TransitionPayout(ctx, id, models.PayoutStatusCancelled, revert); revertErr != nil {
				s.log.Error("payout left cancelled without refund",
					zap.Int64("payout_id", id), zap.Error(err), zap.NamedError("revert_error", revertErr))
			}
			return nil, models.ErrPersistence(err)
		}
		metrics.RecordWallet("credit", "payout_refund", payout.PayoutAmount)
	}
	s.notifyAffiliate(ctx, payout.AffiliateID, NotifyPayout, "Payout "+status,
		fmt.Sprintf("Your payout of %.2f is %s.", payout.PayoutAmount, status))

	updated, err := s.Payouts.GetPayout(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "payout")
	}
	return updated, nil
}

// Tracking and self-service

// TrackClick counts a referral click for an active affiliate code.
func (s *AffiliateService) TrackClick(ctx context.Context, code string, visitorID int64) (*models.Affiliate, error) {
	a, err := s.Affiliates.GetAffiliateByCode(ctx, code)
	if err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	if a.AffiliateStatus != models.AffiliateStatusActive {
		return nil, models.ErrNotFound("affiliate")
	}
	if err := s.Affiliates.IncrementClicks(ctx, a.ID); err != nil {
		return nil, lookupErr(err, "affiliate")
	}
	event := &models.AnalyticsEvent{
		EventType:  models.EventReferralClick,
		ObjectType: "affiliate",
		ObjectID:   strconv.FormatInt(a.ID, 10),
		UserID:     visitorID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Analytics.RecordEvent(ctx, event); err != nil {
		s.log.Warn("referral click not recorded", zap.String("code", code), zap.Error(err))
	}
	a.TotalClicks++
	return a, nil
}

// Dashboard summarises the caller's affiliate account.
func (s *AffiliateService) Dashboard(ctx context.Context, p security.Principal) (*models.AffiliateDashboard, error) {
	a, err := s.affiliateOf(ctx, p)
	if err != nil {
		return nil, err
	}
	d := &models.AffiliateDashboard{
		Affiliate:   *a,
		ReferralURL: s.ReferralURL(a.AffiliateCode),
	}
	if a.CurrentTierID != 0 {
		if tier, err := s.Tiers.GetTier(ctx, a.CurrentTierID); err == nil {
			d.Tier = tier
		}
	}
	if d.Commissions, err = s.ListCommissions(ctx, a.ID, ""); err != nil {
		return nil, err
	}
	if d.Payouts, err = s.ListPayouts(ctx, a.ID, ""); err != nil {
		return nil, err
	}
	for _, c := range d.Commissions {
		switch c.CommissionStatus {
		case models.CommissionStatusPending:
			d.Pending += c.CommissionAmount
		case models.CommissionStatusApproved:
			d.Approved += c.CommissionAmount
		}
	}
	d.Pending = roundCents(d.Pending)
	d.Approved = roundCents(d.Approved)
	return d, nil
}

// ReferralQR returns the caller's referral URL and a QR code PNG data URI.
func (s *AffiliateService) ReferralQR(ctx context.Context, p security.Principal) (string, string, error) {
	a, err := s.affiliateOf(ctx, p)
	if err != nil {
		return "", "", err
	}
	link := s.ReferralURL(a.AffiliateCode)
	uri, err := utils.QRCodeDataURI(link, 256)
	if err != nil {
		return "", "", models.ErrPersistence(err)
	}
	return link, uri, nil
}
