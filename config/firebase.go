package config

import (
	"context"
	"encoding/base64"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// InitMessaging returns an FCM client, or nil when no credentials are configured.
func InitMessaging(ctx context.Context, cfg *Config, log *zap.Logger) *messaging.Client {
	var opt option.ClientOption
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Error("Error decoding base64 Firebase credentials", zap.Error(err))
			return nil
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.FirebaseCredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	default:
		log.Info("Firebase credentials not configured; push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opt)
	if err != nil {
		log.Error("Error initializing Firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Error("Error initializing Firebase messaging", zap.Error(err))
		return nil
	}
	return client
}
