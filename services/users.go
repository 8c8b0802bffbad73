package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateJWT(user *models.User) (string, error)
}

// UserService registers accounts and issues sessions.
type UserService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

func NewUserService(users repositories.UserRepository, tokens TokenIssuer, log *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, log: log, now: time.Now}
}

// Register creates an app_user (or business_owner on request).
func (s *UserService) Register(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleAppUser
	}
	if role != models.RoleAppUser && role != models.RoleBusinessOwner {
		return nil, models.ErrValidation("role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}

	now := s.now().UTC()
	user := &models.User{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    string(hash),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Roles:       []string{role},
		IsActive:    true,
		ReferredBy:  strings.TrimSpace(req.ReferralCode),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, models.ErrConflict("an account with this email already exists")
		}
		return nil, models.ErrPersistence(err)
	}
	user.Password = ""
	return user, nil
}

// Login checks credentials and returns a signed session token.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrNoRecord) {
			return nil, &models.AppError{Kind: models.KindAuthentication, Message: "invalid email or password"}
		}
		return nil, models.ErrPersistence(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, &models.AppError{Kind: models.KindAuthentication, Message: "invalid email or password"}
	}
	if !user.IsActive {
		return nil, &models.AppError{Kind: models.KindAuthentication, Message: "account is inactive"}
	}

	if req.FCMToken != "" && req.FCMToken != user.FCMToken {
		if err := s.users.SetFCMToken(ctx, user.ID, req.FCMToken); err != nil {
			s.log.Warn("failed to store fcm token", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	token, err := s.tokens.GenerateJWT(user)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	user.Password = ""
	return &models.AuthResponse{Token: token, User: *user}, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrNoRecord) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	admin := &models.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: "Administrator",
		Roles:       []string{models.RoleAdministrator},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return err
	}
	s.log.Info("bootstrap administrator created", zap.String("email", admin.Email))
	return nil
}
