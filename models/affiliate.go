package models

import "time"

const (
	AffiliateStatusPending   = "pending"
	AffiliateStatusActive    = "active"
	AffiliateStatusSuspended = "suspended"

	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusRejected = "rejected"

	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusCancelled = "cancelled"

	CreativeTypeImageBanner = "image_banner"
	CreativeTypeTextLink    = "text_link"
	CreativeTypeHTMLCode    = "html_code"
)

// Affiliate is a user's membership in the referral program.
type Affiliate struct {
	ID              int64     `json:"id" bson:"_id"`
	UserID          int64     `json:"user_id" bson:"user_id"`
	AffiliateCode   string    `json:"affiliate_code" bson:"affiliate_code"`
	AffiliateStatus string    `json:"affiliate_status" bson:"affiliate_status"`
	CurrentTierID   int64     `json:"current_tier_id" bson:"current_tier_id"`
	ParentID        int64     `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	WalletBalance   float64   `json:"wallet_balance" bson:"wallet_balance"`
	PaymentEmail    string    `json:"payment_email,omitempty" bson:"payment_email,omitempty"`
	TotalClicks     int64     `json:"total_clicks" bson:"total_clicks"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// AffiliateTier is a commission-rate bracket. Rates are percentages.
type AffiliateTier struct {
	ID                 int64     `json:"id" bson:"_id"`
	TierName           string    `json:"tier_name" bson:"tier_name" validate:"required,max=120"`
	BaseCommissionRate float64   `json:"base_commission_rate" bson:"base_commission_rate" validate:"gte=0,lte=100"`
	MLMCommissionRate  float64   `json:"mlm_commission_rate" bson:"mlm_commission_rate" validate:"gte=0,lte=100"`
	IsActive           bool      `json:"is_active" bson:"is_active"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

type AffiliateCommission struct {
	ID               int64      `json:"id" bson:"_id"`
	AffiliateID      int64      `json:"affiliate_id" bson:"affiliate_id"`
	CommissionAmount float64    `json:"commission_amount" bson:"commission_amount"`
	CommissionStatus string     `json:"commission_status" bson:"commission_status"`
	CommissionType   string     `json:"commission_type" bson:"commission_type"` // "direct" or "mlm"
	Reference        string     `json:"reference,omitempty" bson:"reference,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

type AffiliatePayout struct {
	ID            int64      `json:"id" bson:"_id"`
	AffiliateID   int64      `json:"affiliate_id" bson:"affiliate_id"`
	PayoutAmount  float64    `json:"payout_amount" bson:"payout_amount"`
	PayoutStatus  string     `json:"payout_status" bson:"payout_status"`
	PayoutMethod  string     `json:"payout_method,omitempty" bson:"payout_method,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	AdminNote     string     `json:"admin_note,omitempty" bson:"admin_note,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// AffiliateCreative is a marketing asset offered to affiliates of one tier (0 = all tiers).
type AffiliateCreative struct {
	ID           int64     `json:"id" bson:"_id"`
	CreativeName string    `json:"creative_name" bson:"creative_name" validate:"required,max=200"`
	CreativeType string    `json:"creative_type" bson:"creative_type" validate:"oneof=image_banner text_link html_code"`
	Content      string    `json:"content" bson:"content"`
	ImageURL     string    `json:"image_url,omitempty" bson:"image_url,omitempty" validate:"omitempty,url"`
	TierID       int64     `json:"tier_id" bson:"tier_id"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// AffiliateDashboard is what an affiliate sees about their own account.
type AffiliateDashboard struct {
	Affiliate   Affiliate             `json:"affiliate"`
	Tier        *AffiliateTier        `json:"tier,omitempty"`
	ReferralURL string                `json:"referral_url"`
	Commissions []AffiliateCommission `json:"commissions"`
	Payouts     []AffiliatePayout     `json:"payouts"`
	Pending     float64               `json:"pending_commissions"`
	Approved    float64               `json:"approved_commissions"`
}
