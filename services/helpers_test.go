package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
	"github.com/aslaburda/aslp_backend/security"
)

type sentNotification struct {
	UserID int64
	Type   string
	Title  string
}

type sentEmail struct {
	UserID  int64
	Subject string
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	notes  []sentNotification
	emails []sentEmail
}

func (r *recordingNotifier) Notify(_ context.Context, userID int64, notifType, title, _, _ string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, sentNotification{UserID: userID, Type: notifType, Title: title})
	return &models.Notification{UserID: userID, Type: notifType, Title: title}, nil
}

func (r *recordingNotifier) Email(_ context.Context, userID int64, subject, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, sentEmail{UserID: userID, Subject: subject})
}

type staticSettings struct {
	settings models.GlobalSettings
}

func (s staticSettings) Current(context.Context) (models.GlobalSettings, error) {
	return s.settings, nil
}

func allEnabled() models.GlobalSettings {
	return models.DefaultSettings("", "")
}

func createUser(t *testing.T, store *memory.Store, email string, roles ...string) security.Principal {
	t.Helper()
	u := &models.User{Email: email, Roles: roles, IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return security.PrincipalFromUser(*u)
}

func adminPrincipal(t *testing.T, store *memory.Store) security.Principal {
	return createUser(t, store, "admin@example.com", models.RoleAdministrator)
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) *models.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := models.AsAppError(err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}
