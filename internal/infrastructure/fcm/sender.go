// Package fcm delivers push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/gtsops/gts-workflow/internal/application/port"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Sender sends pushes through the FCM messaging client.
type Sender struct {
	client *messaging.Client
	logger Logger
}

var _ port.PushSender = (*Sender)(nil)

// NewSender initializes the Firebase app from a service-account credentials
// file and returns a Sender bound to its messaging client.
func NewSender(ctx context.Context, credentialsFile string, logger Logger) (*Sender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &Sender{client: client, logger: logger}, nil
}

func (s *Sender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	s.logger.Info("Push sent", "message_id", id, "title", title)
	return nil
}

// LogSender is the fallback push transport used when no Firebase credentials
// are configured. It logs what would have been sent.
type LogSender struct {
	logger Logger
}

var _ port.PushSender = (*LogSender)(nil)

// NewLogSender creates a log-only push sender.
func NewLogSender(logger Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	s.logger.Info("Push (log only)",
		"device_token", deviceToken, "title", title, "body", body, "data", data)
	return nil
}
