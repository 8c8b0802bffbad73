package controllers

import (
	"context"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
)

const (
	subActionGetAll       = "get_all"
	subActionUpdateStatus = "update_status"
)

// AffiliateActions covers the admin side of the affiliate program and the
// affiliate self-service surface.
func AffiliateActions(affiliates *services.AffiliateService) []Action {
	admin := func(name string, h Handler) Action {
		return Action{Name: name, Scope: security.ScopeAdmin, Permission: security.PermManageAffiliates, Feature: models.FeatureAffiliates, Handle: h}
	}
	self := func(name string, perm security.Permission, h Handler) Action {
		return Action{Name: name, Scope: security.ScopePublic, Permission: perm, Feature: models.FeatureAffiliates, Handle: h}
	}

	return []Action{
		admin("aslp_admin_get_affiliates", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			status := rc.Params.Enum("status", false, "", models.AffiliateStatusPending, models.AffiliateStatusActive, models.AffiliateStatusSuspended)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			list, err := affiliates.ListAffiliates(ctx, status)
			return listOf(list), err
		}),
		admin("aslp_admin_update_affiliate_status", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			id := p.Int("id", true)
			status := p.Enum("status", true, "", models.AffiliateStatusPending, models.AffiliateStatusActive, models.AffiliateStatusSuspended)
			tierID := p.Int("tier_id", false)
			if err := p.Err(); err != nil {
				return nil, err
			}
			return affiliates.UpdateStatus(ctx, id, status, tierID)
		}),
		admin("aslp_admin_manage_commissions", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			switch p.Enum("sub_action", true, "", subActionGetAll, subActionUpdateStatus) {
			case subActionGetAll:
				affiliateID := p.Int("affiliate_id", false)
				status := p.Enum("status", false, "", models.CommissionStatusPending, models.CommissionStatusApproved, models.CommissionStatusRejected)
				if err := p.Err(); err != nil {
					return nil, err
				}
				list, err := affiliates.ListCommissions(ctx, affiliateID, status)
				return listOf(list), err
			case subActionUpdateStatus:
				id := p.Int("id", true)
				status := p.Enum("status", true, "", models.CommissionStatusApproved, models.CommissionStatusRejected)
				if err := p.Err(); err != nil {
					return nil, err
				}
				return affiliates.UpdateCommissionStatus(ctx, id, status)
			}
			return nil, p.Err()
		}),
		admin("aslp_admin_manage_payouts", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			switch p.Enum("sub_action", true, "", subActionGetAll, subActionUpdateStatus) {
			case subActionGetAll:
				affiliateID := p.Int("affiliate_id", false)
				status := p.Enum("status", false, "", models.PayoutStatusPending, models.PayoutStatusCompleted, models.PayoutStatusCancelled)
				if err := p.Err(); err != nil {
					return nil, err
				}
				list, err := affiliates.ListPayouts(ctx, affiliateID, status)
				return listOf(list), err
			case subActionUpdateStatus:
				id := p.Int("id", true)
				status := p.Enum("status", true, "", models.PayoutStatusCompleted, models.PayoutStatusCancelled)
				txID := p.String("transaction_id", false)
				note := p.Text("admin_note", false)
				if err := p.Err(); err != nil {
					return nil, err
				}
				return affiliates.UpdatePayoutStatus(ctx, id, status, txID, note)
			}
			return nil, p.Err()
		}),
		admin("aslp_admin_get_affiliate_creatives", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			tierID := int64(-1)
			if rc.Params.Has("tier_id") {
				tierID = rc.Params.Int("tier_id", true)
			}
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			list, err := affiliates.ListCreatives(ctx, tierID)
			return listOf(list), err
		}),
		admin("aslp_admin_create_update_affiliate_creative", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			c := &models.AffiliateCreative{
				ID:           p.Int("id", false),
				CreativeName: p.String("creative_name", true),
				CreativeType: p.Enum("creative_type", true, "", models.CreativeTypeImageBanner, models.CreativeTypeTextLink, models.CreativeTypeHTMLCode),
				ImageURL:     p.URL("image_url", false),
				TierID:       p.Int("tier_id", false),
				IsActive:     p.BoolDefault("is_active", true),
			}
			if c.CreativeType == models.CreativeTypeHTMLCode {
				c.Content = p.HTML("content", true)
			} else {
				c.Content = p.Text("content", false)
			}
			if err := p.Err(); err != nil {
				return nil, err
			}
			return affiliates.SaveCreative(ctx, c)
		}),
		admin("aslp_admin_delete_affiliate_creative", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id := rc.Params.Int("id", true)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			return deleted(id), affiliates.DeleteCreative(ctx, id)
		}),
		admin("aslp_admin_get_affiliate_tiers", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			list, err := affiliates.ListTiers(ctx)
			return listOf(list), err
		}),
		admin("aslp_admin_add_update_affiliate_tier", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			t := &models.AffiliateTier{
				ID:                 p.Int("id", false),
				TierName:           p.String("tier_name", true),
				BaseCommissionRate: p.Float("base_commission_rate", true),
				MLMCommissionRate:  p.Float("mlm_commission_rate", false),
				IsActive:           p.BoolDefault("is_active", true),
			}
			if err := p.Err(); err != nil {
				return nil, err
			}
			return affiliates.SaveTier(ctx, t)
		}),
		admin("aslp_admin_delete_affiliate_tier", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			id := rc.Params.Int("id", true)
			if err := rc.Params.Err(); err != nil {
				return nil, err
			}
			return deleted(id), affiliates.DeleteTier(ctx, id)
		}),
		admin("aslp_admin_record_conversion", func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			affiliateID := p.Int("affiliate_id", true)
			amount := p.Float("amount", true)
			reference := p.String("reference", false)
			if err := p.Err(); err != nil {
				return nil, err
			}
			list, err := affiliates.RecordConversion(ctx, affiliateID, amount, reference)
			return listOf(list), err
		}),

		self("aslp_register_affiliate", security.PermJoinAffiliateProgram, func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			referrer := p.String("referral_code", false)
			email := p.Email("payment_email", false)
			if err := p.Err(); err != nil {
				return nil, err
			}
			return affiliates.Register(ctx, rc.Principal, referrer, email)
		}),
		self("aslp_get_affiliate_dashboard", security.PermAffiliateDashboard, func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			return affiliates.Dashboard(ctx, rc.Principal)
		}),
		self("aslp_request_payout", security.PermRequestPayouts, func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			p := rc.Params
			amount := p.Float("amount", true)
			method := p.String("payout_method", false)
			if err := p.Err(); err != nil {
				return nil, err
			}
			return affiliates.RequestPayout(ctx, rc.Principal, amount, method)
		}),
		self("aslp_get_affiliate_creatives", security.PermAffiliateDashboard, func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			list, err := affiliates.CreativesFor(ctx, rc.Principal)
			return listOf(list), err
		}),
		self("aslp_get_affiliate_qr", security.PermAffiliateDashboard, func(ctx context.Context, rc *RequestContext) (interface{}, error) {
			link, qr, err := affiliates.ReferralQR(ctx, rc.Principal)
			if err != nil {
				return nil, err
			}
			return map[string]string{"referral_url": link, "qr_code": qr}, nil
		}),
	}
}
