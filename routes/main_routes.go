package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aslaburda/aslp_backend/controllers"
	"github.com/aslaburda/aslp_backend/middleware"
	"github.com/aslaburda/aslp_backend/security"
)

// Handlers groups the controllers mounted on the router.
type Handlers struct {
	Ajax *controllers.AjaxController
	Auth *controllers.AuthController
	Site *controllers.SiteController
}

// SetupRoutes configures all routes by calling the individual route registration functions.
func SetupRoutes(e *echo.Echo, h Handlers, jwt *middleware.JWTManager, uploadsDir string) {
	e.Match([]string{"GET", "HEAD"}, "/health", h.Site.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterAuthRoutes(e, h.Auth)
	RegisterAjaxRoutes(e, h.Ajax)
	RegisterSiteRoutes(e, h.Site, jwt)
	RegisterFileRoutes(e, uploadsDir)
}

// RegisterAjaxRoutes mounts the action dispatcher. Both paths reach the same registry.
func RegisterAjaxRoutes(e *echo.Echo, ajax *controllers.AjaxController) {
	e.POST("/api/ajax", ajax.Handle)
	e.POST("/admin-ajax", ajax.Handle)
}

// RegisterSiteRoutes mounts the PWA assets, referral links, the admin menu
// and the notification socket.
func RegisterSiteRoutes(e *echo.Echo, site *controllers.SiteController, jwt *middleware.JWTManager) {
	e.GET("/sw.js", site.ServiceWorker)
	e.GET("/apps/:uuid/", site.AppShell)
	e.GET("/apps/:uuid/manifest.webmanifest", site.Manifest)
	e.GET("/r/:code", site.Referral)

	authGroup := e.Group("/api")
	authGroup.Use(middleware.RequireJWT(jwt))
	authGroup.GET("/admin/menu", site.AdminMenu)
	authGroup.GET("/ws", site.WebSocket, middleware.RequirePermission(security.PermViewNotifications))
}
