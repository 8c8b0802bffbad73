package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
)

const principalKey = "principal"

// UserLookup loads the account behind a token subject.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// LoadPrincipal resolves the token subject into a security.Principal. Requests
// without a token, with an unknown subject, or for a deactivated account
// continue as guests.
func LoadPrincipal(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := security.Principal{}
			if userID := GetUserIDFromToken(c); userID != 0 {
				user, err := users.GetUser(c.Request().Context(), userID)
				if err == nil && user.IsActive {
					principal = security.PrincipalFromUser(*user)
				}
			}
			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// GetPrincipal returns the principal set by LoadPrincipal, or a guest.
func GetPrincipal(c echo.Context) security.Principal {
	p, _ := c.Get(principalKey).(security.Principal)
	return p
}

// RequirePermission rejects principals that do not hold perm.
func RequirePermission(perm security.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := GetPrincipal(c)
			if p.IsGuest() {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication required",
				})
			}
			if decision := security.HasPermission(p, perm, nil); !decision.Allowed {
				c.Logger().Warnf("permission %s denied for user %d: %s", perm, p.UserID, decision.Reason)
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: models.MsgInsufficientPermission,
				})
			}
			return next(c)
		}
	}
}
