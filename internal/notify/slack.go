// Package notify posts review-flow notifications to Slack.
package notify

import (
	"context"

	"github.com/slack-go/slack"
)

// Notifier delivers short operational messages. Failures are the caller's
// to log; they never change pipeline outcomes.
type Notifier interface {
	Post(ctx context.Context, message string) error
}

// Slack posts messages to one channel.
type Slack struct {
	api     *slack.Client
	channel string
}

var _ Notifier = (*Slack)(nil)

// New returns a Slack notifier, or Nop when token or channel is missing so
// callers never branch on configuration.
func New(token, channel string) Notifier {
	if token == "" || channel == "" {
		return Nop{}
	}
	return &Slack{
		api:     slack.New(token),
		channel: channel,
	}
}

// Post sends one text message to the configured channel.
func (s *Slack) Post(ctx context.Context, message string) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(message, false),
	)
	return err
}

// Nop is the notifier used when Slack is not configured.
type Nop struct{}

var _ Notifier = Nop{}

// Post discards the message.
func (Nop) Post(context.Context, string) error { return nil }
