package notify

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Push sends notifications through Firebase Cloud Messaging. Without a
// configured service account the client stays nil and every send is a no-op,
// which keeps development environments free of Firebase credentials.
type Push struct {
	client *messaging.Client
	logger zerolog.Logger
}

// NewPush initializes the FCM client from a service account file. An empty
// path disables push without error.
func NewPush(ctx context.Context, credentialsFile string, logger zerolog.Logger) (*Push, error) {
	if credentialsFile == "" {
		logger.Info().Msg("push: no service account configured, notifications disabled")
		return &Push{logger: logger}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info().Msg("push: notifications enabled")
	return &Push{client: client, logger: logger}, nil
}

// Send delivers one notification to a device token. Failures are logged,
// not returned; push delivery is best effort and never blocks the flow that
// raised the event.
func (p *Push) Send(ctx context.Context, token, title, body string, data map[string]string) {
	if p == nil || p.client == nil || token == "" {
		return
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := p.client.Send(ctx, msg); err != nil {
		p.logger.Warn().Err(err).Msg("push: send failed")
	}
}
