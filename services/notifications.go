package services

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
)

// Notification types.
const (
	NotifyAffiliateStatus = "affiliate_status"
	NotifyCommission      = "commission"
	NotifyPayout          = "payout"
	NotifyListingStatus   = "listing_status"
)

// Broadcaster pushes a payload to a user's open realtime connections.
type Broadcaster interface {
	SendToUser(userID int64, payload interface{}) error
}

// Notifier is the part of NotificationService other managers depend on.
type Notifier interface {
	Notify(ctx context.Context, userID int64, notifType, title, message, link string) (*models.Notification, error)
	Email(ctx context.Context, userID int64, subject, body string)
}

// SettingsReader yields the current feature settings.
type SettingsReader interface {
	Current(ctx context.Context) (models.GlobalSettings, error)
}

// Mailer sends a plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// Pusher delivers a mobile push notification to a device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// SMTPMailer sends mail through gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// FCMPusher sends through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	badge := 1
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "aslp_notifications",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: title, Body: body},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	})
	return err
}

// NotificationService stores per-user notifications and fans them out to
// the realtime hub, push and email. Delivery channels are optional and
// their failures are logged, never returned.
type NotificationService struct {
	repo     repositories.NotificationRepository
	users    repositories.UserRepository
	settings SettingsReader
	hub      Broadcaster
	mailer   Mailer
	pusher   Pusher
	log      *zap.Logger
	now      func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository, users repositories.UserRepository, settings SettingsReader, hub Broadcaster, mailer Mailer, pusher Pusher, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, users: users, settings: settings, hub: hub, mailer: mailer, pusher: pusher, log: log, now: time.Now}
}

// Notify stores a notification for userID and delivers it where possible.
// Nothing is stored while the notifications feature is off.
func (s *NotificationService) Notify(ctx context.Context, userID int64, notifType, title, message, link string) (*models.Notification, error) {
	if s.settings != nil {
		settings, err := s.settings.Current(ctx)
		if err == nil && !settings.Enabled(models.FeatureNotifications) {
			return nil, nil
		}
	}
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Link:      link,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, models.ErrPersistence(err)
	}

	if s.hub != nil {
		if err := s.hub.SendToUser(userID, n); err != nil {
			s.log.Debug("realtime delivery skipped", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	if s.pusher != nil {
		if user, err := s.users.GetUser(ctx, userID); err == nil && user.FCMToken != "" {
			data := map[string]string{
				"type":            notifType,
				"notification_id": fmt.Sprint(n.ID),
				"link":            link,
			}
			if err := s.pusher.Push(ctx, user.FCMToken, title, message, data); err != nil {
				s.log.Warn("push delivery failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
	}
	return n, nil
}

// Email sends a plain-text message to the account of userID.
func (s *NotificationService) Email(ctx context.Context, userID int64, subject, body string) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.Warn("email recipient lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		s.log.Warn("email delivery failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	list, err := s.repo.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, models.ErrPersistence(err)
	}
	return list, nil
}

// MarkRead flags a notification of userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return models.ErrPersistence(err)
	}
	if !ok {
		return models.ErrNotFound("notification")
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.DeleteNotification(ctx, id, userID)
	if err != nil {
		return models.ErrPersistence(err)
	}
	if !ok {
		return models.ErrNotFound("notification")
	}
	return nil
}
