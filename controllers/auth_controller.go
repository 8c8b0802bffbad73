package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/logger"
	"github.com/aslaburda/aslp_backend/middleware"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
)

// AuthController contains authentication logic
type AuthController struct {
	users  *services.UserService
	nonces *security.NonceManager
}

func NewAuthController(users *services.UserService, nonces *security.NonceManager) *AuthController {
	return &AuthController{users: users, nonces: nonces}
}

func respondError(c echo.Context, err error) error {
	appErr := models.AsAppError(err)
	if appErr.Kind == models.KindPersistence {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}
	return c.JSON(appErr.Kind.HTTPStatus(), models.Response{
		Status:  appErr.Kind.HTTPStatus(),
		Message: appErr.Message,
	})
}

// Register creates an account.
func (ac *AuthController) Register(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, models.ErrValidationf("%v", err))
	}

	user, err := ac.users.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created",
		Data:    user,
	})
}

// Login checks credentials and returns a bearer token with the caller's
// effective permissions.
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, models.ErrValidationf("%v", err))
	}

	resp, err := ac.users.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: map[string]interface{}{
			"token":       resp.Token,
			"user":        resp.User,
			"permissions": security.PermissionsFor(security.PrincipalFromUser(resp.User)),
		},
	})
}

type nonceRequest struct {
	Scope string `json:"scope" form:"scope" query:"scope" validate:"required,oneof=aslp_admin_nonce aslp_public_nonce"`
}

// IssueNonce hands out an anti-forgery token for a scope, bound to the
// caller. Admin scope tokens are only issued to signed-in users.
func (ac *AuthController) IssueNonce(c echo.Context) error {
	var req nonceRequest
	if err := c.Bind(&req); err != nil || c.Validate(&req) != nil {
		return respondError(c, models.ErrValidation("scope"))
	}
	p := middleware.GetPrincipal(c)
	if req.Scope == security.ScopeAdmin && p.IsGuest() {
		return respondError(c, models.ErrAuthentication())
	}

	token, err := ac.nonces.Issue(c.Request().Context(), p.UserID, req.Scope)
	if err != nil {
		return respondError(c, models.ErrPersistence(err))
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "ok",
		Data: map[string]interface{}{
			"nonce":      token,
			"scope":      req.Scope,
			"expires_in": int(ac.nonces.TTL().Seconds()),
		},
	})
}
