package models

import "time"

// Role names understood by the permission policy.
const (
	RoleAdministrator = "administrator"
	RoleAppUser       = "app_user"
	RoleBusinessOwner = "business_owner"
	RoleAffiliate     = "affiliate"
)

// User is an account able to act on the AJAX surface.
type User struct {
	ID           int64     `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	Password     string    `json:"-" bson:"password"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	Roles        []string  `json:"roles" bson:"roles"`
	Capabilities []string  `json:"capabilities,omitempty" bson:"capabilities,omitempty"` // granted on top of roles
	IsActive     bool      `json:"is_active" bson:"is_active"`
	ReferredBy   string    `json:"referred_by,omitempty" bson:"referred_by,omitempty"` // affiliate code used at signup
	FCMToken     string    `json:"-" bson:"fcm_token,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type SignupRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	DisplayName  string `json:"display_name" validate:"required,max=120"`
	Role         string `json:"role" validate:"omitempty,oneof=app_user business_owner"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FCMToken string `json:"fcm_token,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
