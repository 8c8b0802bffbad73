package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"

	"github.com/aslaburda/aslp_backend/models"
)

const claimsKey = "claims"

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID int64    `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.StandardClaims
}

// Valid implements jwt.Claims.
func (c JwtCustomClaims) Valid() error {
	now := time.Now().Unix()
	if c.ExpiresAt > 0 && now > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && now < c.NotBefore {
		return errors.New("token used before valid")
	}
	if c.UserID <= 0 {
		return errors.New("token has no subject")
	}
	return nil
}

// JWTManager signs and parses session tokens with one HMAC secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateJWT issues a signed token for user.
func (m *JWTManager) GenerateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.Roles,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken validates tokenString and returns its claims.
func (m *JWTManager) ParseToken(tokenString string) (*JwtCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// OptionalJWT stores valid claims on the context and lets anonymous
// requests through as guests. An invalid token is treated as no token.
func OptionalJWT(m *JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenString := extractToken(c); tokenString != "" {
				if claims, err := m.ParseToken(tokenString); err == nil {
					c.Set(claimsKey, claims)
				}
			}
			return next(c)
		}
	}
}

// RequireJWT rejects requests without valid claims.
func RequireJWT(m *JWTManager) echo.MiddlewareFunc {
	optional := OptionalJWT(m)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return optional(func(c echo.Context) error {
			if GetUserIDFromToken(c) == 0 {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Please provide valid credentials")
			}
			return next(c)
		})
	}
}

// extractToken reads a bearer token from the Authorization header or, for
// websocket upgrades, the token query parameter.
func extractToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return c.QueryParam("token")
}

// GetClaims returns the claims stored by OptionalJWT, or nil.
func GetClaims(c echo.Context) *JwtCustomClaims {
	claims, _ := c.Get(claimsKey).(*JwtCustomClaims)
	return claims
}

// GetUserIDFromToken returns the authenticated user id, 0 for guests.
func GetUserIDFromToken(c echo.Context) int64 {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}
