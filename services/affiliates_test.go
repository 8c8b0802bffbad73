package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/utils"
)

func newAffiliateService(store *memory.Store, notifier Notifier) *AffiliateService {
	return NewAffiliateService(AffiliateStores{
		Affiliates:  store,
		Tiers:       store,
		Commissions: store,
		Payouts:     store,
		Creatives:   store,
		Users:       store,
		Analytics:   store,
	}, notifier, utils.NewValidator(), "https://example.com", zap.NewNop())
}

// activeAffiliate registers p and activates the membership on tier.
func activeAffiliate(t *testing.T, svc *AffiliateService, p security.Principal, referrer string) *models.Affiliate {
	t.Helper()
	ctx := context.Background()
	a, err := svc.Register(ctx, p, referrer, "")
	require.NoError(t, err)
	a, err = svc.UpdateStatus(ctx, a.ID, models.AffiliateStatusActive, 0)
	require.NoError(t, err)
	return a
}

func TestAffiliate_RegisterDefaultsAndConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)

	inactive, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Legacy", BaseCommissionRate: 5})
	require.NoError(t, err)
	bronze, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, IsActive: true})
	require.NoError(t, err)
	require.NotEqual(t, inactive.ID, bronze.ID)

	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a, err := svc.Register(ctx, p, "", "pay@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AffiliateStatusPending, a.AffiliateStatus)
	assert.Equal(t, bronze.ID, a.CurrentTierID)
	assert.Regexp(t, `^AFF-[A-Z2-7]{6}$`, a.AffiliateCode)
	assert.Equal(t, "https://example.com/r/"+a.AffiliateCode, svc.ReferralURL(a.AffiliateCode))

	_, err = svc.Register(ctx, p, "", "")
	assertKind(t, err, models.KindConflict)
}

func TestAffiliate_RegisterUnknownReferrer(t *testing.T) {
	store := memory.New()
	svc := newAffiliateService(store, nil)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)

	_, err := svc.Register(context.Background(), p, "AFF-NOPE00", "")
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "referral_code", appErr.Message)
}

func TestAffiliate_RegisterUsesSignupReferral(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)

	parent := activeAffiliate(t, svc, createUser(t, store, "parent@example.com", models.RoleAppUser), "")

	u := &models.User{Email: "child@example.com", Roles: []string{models.RoleAppUser}, IsActive: true, ReferredBy: parent.AffiliateCode}
	require.NoError(t, store.CreateUser(ctx, u))
	child, err := svc.Register(ctx, security.PrincipalFromUser(*u), "", "")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, child.ParentID)
}

func TestAffiliate_ActivationGrantsAndRevokes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	notifier := &recordingNotifier{}
	svc := newAffiliateService(store, notifier)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)

	a := activeAffiliate(t, svc, p, "")
	u, err := store.GetUser(ctx, p.UserID)
	require.NoError(t, err)
	active := security.PrincipalFromUser(*u)
	assert.True(t, active.Can(security.PermAffiliateDashboard))
	assert.True(t, active.Can(security.PermRequestPayouts))
	require.Len(t, notifier.emails, 1)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, NotifyAffiliateStatus, notifier.notes[0].Type)

	_, err = svc.UpdateStatus(ctx, a.ID, models.AffiliateStatusSuspended, 0)
	require.NoError(t, err)
	u, err = store.GetUser(ctx, p.UserID)
	require.NoError(t, err)
	suspended := security.PrincipalFromUser(*u)
	assert.False(t, suspended.Can(security.PermAffiliateDashboard))
	assert.NotContains(t, suspended.Roles, models.RoleAffiliate)

	_, err = svc.UpdateStatus(ctx, a.ID, "bogus", 0)
	assertKind(t, err, models.KindValidation)
	_, err = svc.UpdateStatus(ctx, 999, models.AffiliateStatusActive, 0)
	assertKind(t, err, models.KindNotFound)
}

func TestAffiliate_DeleteTierInUse(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	tier, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Gold", BaseCommissionRate: 15, IsActive: true})
	require.NoError(t, err)

	_, err = svc.Register(ctx, createUser(t, store, "a@example.com", models.RoleAppUser), "", "")
	require.NoError(t, err)

	err = svc.DeleteTier(ctx, tier.ID)
	appErr := assertKind(t, err, models.KindConflict)
	assert.Equal(t, "Cannot delete tier: 1 affiliate(s) are assigned to it", appErr.Message)

	empty, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Empty"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTier(ctx, empty.ID))
	assertKind(t, svc.DeleteTier(ctx, empty.ID), models.KindNotFound)
}

func TestAffiliate_SaveTierValidation(t *testing.T) {
	svc := newAffiliateService(memory.New(), nil)
	_, err := svc.SaveTier(context.Background(), &models.AffiliateTier{TierName: "Bad", BaseCommissionRate: 120})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "base_commission_rate", appErr.Message)
}

func TestAffiliate_CommissionApprovalCreditsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	_, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, IsActive: true})
	require.NoError(t, err)
	a := activeAffiliate(t, svc, createUser(t, store, "a@example.com", models.RoleAppUser), "")

	booked, err := svc.RecordConversion(ctx, a.ID, 199.99, "order-1")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, 20.0, booked[0].CommissionAmount)

	c, err := svc.UpdateCommissionStatus(ctx, booked[0].ID, models.CommissionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusApproved, c.CommissionStatus)

	again, err := svc.UpdateCommissionStatus(ctx, booked[0].ID, models.CommissionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusApproved, again.CommissionStatus)

	_, err = svc.UpdateCommissionStatus(ctx, booked[0].ID, models.CommissionStatusRejected)
	assertKind(t, err, models.KindConflict)

	got, err := store.GetAffiliate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.WalletBalance)
}

func TestAffiliate_RejectedCommissionNoCredit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	_, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, IsActive: true})
	require.NoError(t, err)
	a := activeAffiliate(t, svc, createUser(t, store, "a@example.com", models.RoleAppUser), "")

	booked, err := svc.RecordConversion(ctx, a.ID, 50, "")
	require.NoError(t, err)
	_, err = svc.UpdateCommissionStatus(ctx, booked[0].ID, models.CommissionStatusRejected)
	require.NoError(t, err)

	got, err := store.GetAffiliate(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.WalletBalance)
}

func TestAffiliate_ConversionPaysMLMParent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	_, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, MLMCommissionRate: 2.5, IsActive: true})
	require.NoError(t, err)

	parent := activeAffiliate(t, svc, createUser(t, store, "parent@example.com", models.RoleAppUser), "")
	child := activeAffiliate(t, svc, createUser(t, store, "child@example.com", models.RoleAppUser), parent.AffiliateCode)

	booked, err := svc.RecordConversion(ctx, child.ID, 100, "order-9")
	require.NoError(t, err)
	require.Len(t, booked, 2)
	assert.Equal(t, "direct", booked[0].CommissionType)
	assert.Equal(t, child.ID, booked[0].AffiliateID)
	assert.Equal(t, 10.0, booked[0].CommissionAmount)
	assert.Equal(t, "mlm", booked[1].CommissionType)
	assert.Equal(t, parent.ID, booked[1].AffiliateID)
	assert.Equal(t, 2.5, booked[1].CommissionAmount)
}

func TestAffiliate_ConversionRequiresActive(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	a, err := svc.Register(ctx, createUser(t, store, "a@example.com", models.RoleAppUser), "", "")
	require.NoError(t, err)

	_, err = svc.RecordConversion(ctx, a.ID, 10, "")
	assertKind(t, err, models.KindConflict)
	_, err = svc.RecordConversion(ctx, a.ID, 0, "")
	assertKind(t, err, models.KindValidation)
}

func TestAffiliate_PayoutLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	notifier := &recordingNotifier{}
	svc := newAffiliateService(store, notifier)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a := activeAffiliate(t, svc, p, "")
	require.NoError(t, store.CreditWallet(ctx, a.ID, 100))

	_, err := svc.RequestPayout(ctx, p, 150, "paypal")
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "Insufficient wallet balance", appErr.Message)

	payout, err := svc.RequestPayout(ctx, p, 60, "paypal")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPending, payout.PayoutStatus)
	wallet := func() float64 {
		got, err := store.GetAffiliate(ctx, a.ID)
		require.NoError(t, err)
		return got.WalletBalance
	}
	assert.Equal(t, 40.0, wallet())

	cancelled, err := svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusCancelled, "", "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, "duplicate request", cancelled.AdminNote)
	assert.Equal(t, 100.0, wallet())

	_, err = svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusCancelled, "", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, wallet(), "second cancel must not refund again")

	_, err = svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusCompleted, "", "")
	assertKind(t, err, models.KindConflict)

	second, err := svc.RequestPayout(ctx, p, 25, "bank")
	require.NoError(t, err)
	done, err := svc.UpdatePayoutStatus(ctx, second.ID, models.PayoutStatusCompleted, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, done.TransactionID)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, 75.0, wallet())
}

func TestAffiliate_PayoutRequiresActive(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)

	_, err := svc.RequestPayout(ctx, p, 10, "")
	assertKind(t, err, models.KindNotFound)

	_, err = svc.Register(ctx, p, "", "")
	require.NoError(t, err)
	_, err = svc.RequestPayout(ctx, p, 10, "")
	assertKind(t, err, models.KindAuthorization)
}

func TestAffiliate_TrackClick(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)

	pending, err := svc.Register(ctx, p, "", "")
	require.NoError(t, err)
	_, err = svc.TrackClick(ctx, pending.AffiliateCode, 0)
	assertKind(t, err, models.KindNotFound)

	_, err = svc.UpdateStatus(ctx, pending.ID, models.AffiliateStatusActive, 0)
	require.NoError(t, err)
	a, err := svc.TrackClick(ctx, pending.AffiliateCode, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.TotalClicks)

	analytics := NewAnalyticsService(store)
	report, err := analytics.Report(ctx, models.AnalyticsQuery{ObjectType: "affiliate", ObjectID: strconv.FormatInt(a.ID, 10)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Totals[models.EventReferralClick])
}

func TestAffiliate_CreativesForTier(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	bronze, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", IsActive: true})
	require.NoError(t, err)
	gold, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Gold", IsActive: true})
	require.NoError(t, err)

	_, err = svc.SaveCreative(ctx, &models.AffiliateCreative{CreativeName: "Banner", CreativeType: models.CreativeTypeImageBanner})
	appErr := assertKind(t, err, models.KindValidation)
	assert.Equal(t, "image_url", appErr.Message)

	_, err = svc.SaveCreative(ctx, &models.AffiliateCreative{CreativeName: "Everyone", CreativeType: models.CreativeTypeTextLink, IsActive: true})
	require.NoError(t, err)
	_, err = svc.SaveCreative(ctx, &models.AffiliateCreative{CreativeName: "Gold only", CreativeType: models.CreativeTypeTextLink, TierID: gold.ID, IsActive: true})
	require.NoError(t, err)
	_, err = svc.SaveCreative(ctx, &models.AffiliateCreative{CreativeName: "Ghost", CreativeType: models.CreativeTypeTextLink, TierID: 99})
	assertKind(t, err, models.KindValidation)

	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a := activeAffiliate(t, svc, p, "")
	require.Equal(t, bronze.ID, a.CurrentTierID)

	list, err := svc.CreativesFor(ctx, p)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Everyone", list[0].CreativeName)

	all, err := svc.ListCreatives(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAffiliate_DashboardTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	_, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, IsActive: true})
	require.NoError(t, err)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a := activeAffiliate(t, svc, p, "")

	first, err := svc.RecordConversion(ctx, a.ID, 100, "")
	require.NoError(t, err)
	_, err = svc.RecordConversion(ctx, a.ID, 30, "")
	require.NoError(t, err)
	_, err = svc.UpdateCommissionStatus(ctx, first[0].ID, models.CommissionStatusApproved)
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.Pending)
	assert.Equal(t, 10.0, d.Approved)
	assert.Equal(t, 10.0, d.Affiliate.WalletBalance)
	require.NotNil(t, d.Tier)
	assert.Equal(t, "Bronze", d.Tier.TierName)
	assert.Len(t, d.Commissions, 2)
	assert.NotNil(t, d.Payouts)

	link, qr, err := svc.ReferralQR(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, d.ReferralURL, link)
	assert.Contains(t, qr, "data:image/png;base64,")
}

// flakyAffiliates fails selected writes on top of the memory store.
type flakyAffiliates struct {
	*memory.Store
	failCredit bool
	failStatus bool
}

var errWriteFailed = errors.New("write failed")

func (f *flakyAffiliates) CreditWallet(ctx context.Context, id int64, amount float64) error {
	if f.failCredit {
		return errWriteFailed
	}
	return f.Store.CreditWallet(ctx, id, amount)
}

func (f *flakyAffiliates) SetAffiliateStatus(ctx context.Context, id int64, status string) error {
	if f.failStatus {
		return errWriteFailed
	}
	return f.Store.SetAffiliateStatus(ctx, id, status)
}

func TestAffiliate_NonFiniteAmountsRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	_, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Bronze", BaseCommissionRate: 10, IsActive: true})
	require.NoError(t, err)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a := activeAffiliate(t, svc, p, "")
	require.NoError(t, store.CreditWallet(ctx, a.ID, 20))

	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.RequestPayout(ctx, p, amount, "paypal")
		assertKind(t, err, models.KindValidation)
		_, err = svc.RecordConversion(ctx, a.ID, amount, "order-x")
		assertKind(t, err, models.KindValidation)
	}

	got, err := store.GetAffiliate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.WalletBalance)
	payouts, err := svc.ListPayouts(ctx, a.ID, "")
	require.NoError(t, err)
	assert.Empty(t, payouts)
	commissions, err := store.ListCommissions(ctx, a.ID, "")
	require.NoError(t, err)
	assert.Empty(t, commissions)
}

func TestAffiliate_CancelRefundFailureKeepsPayoutPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	p := createUser(t, store, "a@example.com", models.RoleAppUser)
	a := activeAffiliate(t, svc, p, "")
	require.NoError(t, store.CreditWallet(ctx, a.ID, 100))
	payout, err := svc.RequestPayout(ctx, p, 60, "paypal")
	require.NoError(t, err)

	flaky := &flakyAffiliates{Store: store, failCredit: true}
	svc.Affiliates = flaky

	_, err = svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusCancelled, "", "")
	assertKind(t, err, models.KindPersistence)
	stored, err := store.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPending, stored.PayoutStatus)

	flaky.failCredit = false
	cancelled, err := svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusCancelled, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCancelled, cancelled.PayoutStatus)
	got, err := store.GetAffiliate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.WalletBalance)
}

func TestAffiliate_StatusFailureKeepsTier(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newAffiliateService(store, nil)
	a, err := svc.Register(ctx, createUser(t, store, "a@example.com", models.RoleAppUser), "", "")
	require.NoError(t, err)
	gold, err := svc.SaveTier(ctx, &models.AffiliateTier{TierName: "Gold", BaseCommissionRate: 20, IsActive: true})
	require.NoError(t, err)

	svc.Affiliates = &flakyAffiliates{Store: store, failStatus: true}
	_, err = svc.UpdateStatus(ctx, a.ID, models.AffiliateStatusActive, gold.ID)
	assertKind(t, err, models.KindPersistence)

	got, err := store.GetAffiliate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.CurrentTierID, got.CurrentTierID)
	assert.Equal(t, models.AffiliateStatusPending, got.AffiliateStatus)
}
