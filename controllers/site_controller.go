package controllers

import (
	_ "embed"
	"html/template"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/logger"
	"github.com/aslaburda/aslp_backend/middleware"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	ws "github.com/aslaburda/aslp_backend/websocket"
)

//go:embed static/sw.js
var serviceWorker []byte

const referralCookie = "aslp_ref"

// MenuEntry is one admin page.
type MenuEntry struct {
	Slug       string              `json:"slug"`
	Title      string              `json:"title"`
	Capability security.Permission `json:"capability"`
	Feature    string              `json:"feature,omitempty"`
}

var adminMenu = []MenuEntry{
	{Slug: "aslp-apps", Title: "App Builder", Capability: security.PermManageApps, Feature: models.FeatureAppBuilder},
	{Slug: "aslp-app-templates", Title: "App Templates", Capability: security.PermManageAppTemplates, Feature: models.FeatureAppBuilder},
	{Slug: "aslp-app-menus", Title: "App Menus", Capability: security.PermManageAppMenus, Feature: models.FeatureMenus},
	{Slug: "aslp-listings", Title: "Business Listings", Capability: security.PermManageListings, Feature: models.FeatureListings},
	{Slug: "aslp-listing-plans", Title: "Listing Plans", Capability: security.PermManageListingPlans, Feature: models.FeatureListingPlans},
	{Slug: "aslp-custom-fields", Title: "Custom Fields", Capability: security.PermManageCustomFields, Feature: models.FeatureCustomFields},
	{Slug: "aslp-affiliates", Title: "Affiliate Program", Capability: security.PermManageAffiliates, Feature: models.FeatureAffiliates},
	{Slug: "aslp-analytics", Title: "Analytics", Capability: security.PermViewAnalytics, Feature: models.FeatureAnalytics},
	{Slug: "aslp-ai-agent", Title: "AI Agent", Capability: security.PermUseAIAgent, Feature: models.FeatureAIAgent},
	{Slug: "aslp-tools", Title: "Tools", Capability: security.PermManageTools, Feature: models.FeatureTools},
	{Slug: "aslp-settings", Title: "Settings", Capability: security.PermManageSettings},
}

// BuildAdminMenu lists the admin pages p may open under the current flags.
// The same flags gate the actions behind each page.
func BuildAdminMenu(p security.Principal, settings models.GlobalSettings) []MenuEntry {
	entries := []MenuEntry{}
	for _, e := range adminMenu {
		if e.Feature != "" && !settings.Enabled(e.Feature) {
			continue
		}
		if !p.Can(e.Capability) {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

var appShell = template.Must(template.New("app").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Manifest.Name}}</title>
<link rel="manifest" href="{{.ManifestURL}}">
{{if .Manifest.ThemeColor}}<meta name="theme-color" content="{{.Manifest.ThemeColor}}">{{end}}
</head>
<body>
<div id="app" data-app-uuid="{{.UUID}}"></div>
<script>
if ('serviceWorker' in navigator) {
  navigator.serviceWorker.register('/sw.js', {scope: '/'});
}
</script>
</body>
</html>
`))

// SiteController serves the non-AJAX surface: admin menu, PWA assets,
// referral links and the notification socket.
type SiteController struct {
	apps       *services.AppBuilderService
	affiliates *services.AffiliateService
	analytics  *services.AnalyticsService
	settings   services.SettingsReader
	hub        *ws.Hub
	upgrader   gws.Upgrader
	baseURL    string
}

func NewSiteController(apps *services.AppBuilderService, affiliates *services.AffiliateService, analytics *services.AnalyticsService, settings services.SettingsReader, hub *ws.Hub, upgrader gws.Upgrader, baseURL string) *SiteController {
	return &SiteController{
		apps:       apps,
		affiliates: affiliates,
		analytics:  analytics,
		settings:   settings,
		hub:        hub,
		upgrader:   upgrader,
		baseURL:    baseURL,
	}
}

func (sc *SiteController) currentSettings(c echo.Context) (models.GlobalSettings, error) {
	return sc.settings.Current(c.Request().Context())
}

// AdminMenu returns the admin pages visible to the caller.
func (sc *SiteController) AdminMenu(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	if p.IsGuest() {
		return respondError(c, models.ErrAuthentication())
	}
	settings, err := sc.currentSettings(c)
	if err != nil {
		return respondError(c, models.ErrPersistence(err))
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "ok",
		Data:    BuildAdminMenu(p, settings),
	})
}

func (sc *SiteController) appBuilderEnabled(c echo.Context) bool {
	settings, err := sc.currentSettings(c)
	return err == nil && settings.Enabled(models.FeatureAppBuilder)
}

// Manifest serves the web app manifest of an app.
func (sc *SiteController) Manifest(c echo.Context) error {
	if !sc.appBuilderEnabled(c) {
		return echo.ErrNotFound
	}
	m, err := sc.apps.Manifest(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return echo.ErrNotFound
		}
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/manifest+json")
	return c.JSON(http.StatusOK, m)
}

// AppShell serves the installable start page of an app and counts the view.
func (sc *SiteController) AppShell(c echo.Context) error {
	if !sc.appBuilderEnabled(c) {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	appUUID := c.Param("uuid")
	m, err := sc.apps.Manifest(ctx, appUUID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return echo.ErrNotFound
		}
		return respondError(c, err)
	}
	p := middleware.GetPrincipal(c)
	if err := sc.analytics.Track(ctx, models.EventAppView, "app", appUUID, p.UserID); err != nil {
		logger.FromEcho(c).Warn("app view not recorded", zap.String("app_uuid", appUUID), zap.Error(err))
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return appShell.Execute(c.Response(), map[string]interface{}{
		"Manifest":    m,
		"ManifestURL": "/apps/" + appUUID + "/manifest.webmanifest",
		"UUID":        appUUID,
	})
}

// ServiceWorker serves the offline cache worker for the whole origin.
func (sc *SiteController) ServiceWorker(c echo.Context) error {
	h := c.Response().Header()
	h.Set("Service-Worker-Allowed", "/")
	h.Set(echo.HeaderCacheControl, "no-cache")
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", serviceWorker)
}

// Referral counts a click on an affiliate link, remembers the code in a
// cookie and sends the visitor to the site.
func (sc *SiteController) Referral(c echo.Context) error {
	code := c.Param("code")
	settings, err := sc.currentSettings(c)
	if err != nil || !settings.Enabled(models.FeatureAffiliates) {
		return c.Redirect(http.StatusFound, sc.baseURL+"/")
	}

	p := middleware.GetPrincipal(c)
	if _, err := sc.affiliates.TrackClick(c.Request().Context(), code, p.UserID); err != nil {
		if !models.IsKind(err, models.KindNotFound) {
			logger.FromEcho(c).Warn("referral click failed", zap.String("code", code), zap.Error(err))
		}
		return c.Redirect(http.StatusFound, sc.baseURL+"/")
	}
	c.SetCookie(&http.Cookie{
		Name:     referralCookie,
		Value:    code,
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, sc.baseURL+"/?ref="+code)
}

// WebSocket attaches a signed-in user to the notification hub.
func (sc *SiteController) WebSocket(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	if p.IsGuest() {
		return respondError(c, models.ErrAuthentication())
	}
	return ws.HandleWebSocket(c, sc.hub, sc.upgrader, p.UserID)
}

// Health reports liveness.
func (sc *SiteController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
