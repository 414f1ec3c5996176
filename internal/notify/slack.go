package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts notifications to a Slack channel instead of mail.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier configures posting with the given bot token.
func NewSlackNotifier(botToken, channel string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

// Send posts the subject and body as one message.
func (n *SlackNotifier) Send(ctx context.Context, subject, body string) error {
	text := fmt.Sprintf("*%s*\n%s", subject, body)
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	n.logger.Debug("slack notification sent", zap.String("subject", subject))
	return nil
}
