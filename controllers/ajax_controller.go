package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/logger"
	"github.com/aslaburda/aslp_backend/metrics"
	"github.com/aslaburda/aslp_backend/middleware"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	"github.com/aslaburda/aslp_backend/utils"
)

// NonceHeader carries the anti-forgery token when it is not a form field.
const NonceHeader = "X-WP-Nonce"

// Handler runs an action once the request passed every gate.
type Handler func(ctx context.Context, rc *RequestContext) (interface{}, error)

// Action describes one AJAX action and the gates in front of it.
type Action struct {
	Name       string
	Scope      string // nonce scope
	Permission security.Permission
	Feature    string // optional feature flag
	Public     bool   // guests allowed; the nonce is still checked
	Handle     Handler
}

// RequestContext is everything a handler may use about the current request.
type RequestContext struct {
	Principal security.Principal
	Settings  models.GlobalSettings
	Params    *utils.Params
	Echo      echo.Context
	Log       *zap.Logger
}

// AjaxController dispatches POST /api/ajax by its action field.
type AjaxController struct {
	actions  map[string]Action
	nonces   *security.NonceManager
	settings services.SettingsReader
}

func NewAjaxController(nonces *security.NonceManager, settings services.SettingsReader) *AjaxController {
	return &AjaxController{
		actions:  make(map[string]Action),
		nonces:   nonces,
		settings: settings,
	}
}

// Register adds actions to the dispatch table. Names must be unique.
func (ac *AjaxController) Register(actions ...Action) {
	for _, a := range actions {
		if _, dup := ac.actions[a.Name]; dup {
			panic(fmt.Sprintf("ajax action %s registered twice", a.Name))
		}
		if a.Scope == "" || a.Handle == nil {
			panic(fmt.Sprintf("ajax action %s needs a nonce scope and a handler", a.Name))
		}
		ac.actions[a.Name] = a
	}
}

// Lookup returns a registered action.
func (ac *AjaxController) Lookup(name string) (Action, bool) {
	a, ok := ac.actions[name]
	return a, ok
}

// Names lists the registered actions in lexical order.
func (ac *AjaxController) Names() []string {
	names := make([]string, 0, len(ac.actions))
	for name := range ac.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle verifies the nonce, the feature flag and the permission of the
// requested action, in that order, before running it. Any failed gate
// answers with a failure envelope and the handler never runs.
func (ac *AjaxController) Handle(c echo.Context) error {
	log := logger.FromEcho(c)
	name := c.FormValue("action")
	c.Set("ajax_action", name)

	action, ok := ac.actions[name]
	if !ok {
		metrics.RecordAjax("unknown", "unknown_action")
		return c.JSON(http.StatusBadRequest, models.Failure("Unknown action"))
	}

	ctx := c.Request().Context()
	principal := middleware.GetPrincipal(c)

	token := c.FormValue("nonce")
	if token == "" {
		token = c.Request().Header.Get(NonceHeader)
	}
	if !ac.nonces.Verify(ctx, principal.UserID, action.Scope, token) {
		return ac.fail(c, log, name, models.ErrAuthentication())
	}

	settings, err := ac.settings.Current(ctx)
	if err != nil {
		return ac.fail(c, log, name, models.ErrPersistence(err))
	}
	if action.Feature != "" && !settings.Enabled(action.Feature) {
		return ac.fail(c, log, name, models.ErrFeatureDisabled(action.Feature))
	}
	if !action.Public {
		if decision := security.HasPermission(principal, action.Permission, nil); !decision.Allowed {
			return ac.fail(c, log, name, &models.AppError{
				Kind:    models.KindAuthorization,
				Message: models.MsgInsufficientPermission,
				Err:     fmt.Errorf("%s: %s", action.Permission, decision.Reason),
			})
		}
	}

	form, err := c.FormParams()
	if err != nil {
		return ac.fail(c, log, name, models.ErrValidationf("malformed request body"))
	}
	rc := &RequestContext{
		Principal: principal,
		Settings:  settings,
		Params:    utils.NewParams(form),
		Echo:      c,
		Log:       log.With(zap.String("action", name), zap.Int64("user_id", principal.UserID)),
	}

	result, err := action.Handle(ctx, rc)
	if err != nil {
		return ac.fail(c, rc.Log, name, err)
	}
	if result == nil {
		return ac.fail(c, rc.Log, name, models.ErrPersistence(fmt.Errorf("%s returned no result", name)))
	}
	metrics.RecordAjax(name, "success")
	return c.JSON(http.StatusOK, models.Success(result))
}

func (ac *AjaxController) fail(c echo.Context, log *zap.Logger, action string, err error) error {
	appErr := models.AsAppError(err)
	switch appErr.Kind {
	case models.KindPersistence, models.KindUpstream:
		log.Error("ajax action failed", zap.String("action", action), zap.Error(err))
	case models.KindAuthentication, models.KindAuthorization:
		log.Warn("ajax action rejected", zap.String("action", action), zap.Error(err))
	default:
		log.Debug("ajax action refused", zap.String("action", action), zap.Error(err))
	}
	metrics.RecordAjax(action, appErr.Kind.String())
	return c.JSON(appErr.Kind.HTTPStatus(), models.Failure(appErr.Message))
}
