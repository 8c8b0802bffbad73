package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aslaburda/aslp_backend/controllers"
)

// RegisterAuthRoutes sets up account and nonce routes. The global rate
// limiter applies stricter limits to login and register.
func RegisterAuthRoutes(e *echo.Echo, auth *controllers.AuthController) {
	e.POST("/api/auth/register", auth.Register)
	e.POST("/api/auth/login", auth.Login)

	// guests get a nonce for public actions; admin scopes need a session
	e.Match([]string{http.MethodGet, http.MethodPost}, "/api/nonce", auth.IssueNonce)
}
