package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories/memory"
)

type fakeHub struct {
	sent map[int64]int
	err  error
}

func (h *fakeHub) SendToUser(userID int64, _ interface{}) error {
	if h.sent == nil {
		h.sent = map[int64]int{}
	}
	h.sent[userID]++
	return h.err
}

type fakePusher struct {
	tokens []string
	data   []map[string]string
}

func (p *fakePusher) Push(_ context.Context, token, _, _ string, data map[string]string) error {
	p.tokens = append(p.tokens, token)
	p.data = append(p.data, data)
	return nil
}

type fakeMailer struct {
	to  []string
	err error
}

func (m *fakeMailer) Send(to, _, _ string) error {
	m.to = append(m.to, to)
	return m.err
}

func TestNotifications_DeliverEverywhere(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := &models.User{Email: "owner@example.com", Roles: []string{models.RoleBusinessOwner}, FCMToken: "device-1"}
	require.NoError(t, store.CreateUser(ctx, u))

	hub := &fakeHub{err: errors.New("no connections")}
	pusher := &fakePusher{}
	mailer := &fakeMailer{}
	svc := NewNotificationService(store, store, staticSettings{allEnabled()}, hub, mailer, pusher, zap.NewNop())

	n, err := svc.Notify(ctx, u.ID, NotifyListingStatus, "Listing approved", "Your listing is live", "/listings/1")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 1, hub.sent[u.ID])
	assert.Equal(t, []string{"device-1"}, pusher.tokens)
	assert.Equal(t, NotifyListingStatus, pusher.data[0]["type"])

	svc.Email(ctx, u.ID, "Hello", "body")
	assert.Equal(t, []string{"owner@example.com"}, mailer.to)

	list, err := svc.List(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotifications_FeatureOffStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	settings := allEnabled()
	settings.Features[models.FeatureNotifications] = false
	hub := &fakeHub{}
	svc := NewNotificationService(store, store, staticSettings{settings}, hub, nil, nil, zap.NewNop())

	n, err := svc.Notify(ctx, 1, NotifyPayout, "Payout", "", "")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, hub.sent)

	list, err := svc.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotifications_ReadAndDeleteAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewNotificationService(store, store, nil, nil, nil, nil, zap.NewNop())

	n, err := svc.Notify(ctx, 7, NotifyPayout, "Payout sent", "", "")
	require.NoError(t, err)

	assertKind(t, svc.MarkRead(ctx, 8, n.ID), models.KindNotFound)
	require.NoError(t, svc.MarkRead(ctx, 7, n.ID))
	unread, err := svc.List(ctx, 7, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assertKind(t, svc.Delete(ctx, 8, n.ID), models.KindNotFound)
	require.NoError(t, svc.Delete(ctx, 7, n.ID))
	assertKind(t, svc.Delete(ctx, 7, n.ID), models.KindNotFound)
}
