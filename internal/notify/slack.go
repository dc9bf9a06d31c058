package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/slack-go/slack"
)

// slackPoster is the subset of *slack.Client used for delivery.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackSender posts reminders to a Slack channel or user id.
type SlackSender struct {
	client slackPoster
}

// NewSlackSender creates a sender using a bot token.
func NewSlackSender(token string) (*SlackSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("slack token is empty")
	}
	return &SlackSender{client: slack.New(token)}, nil
}

func (s *SlackSender) Send(ctx context.Context, address, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, address,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(false),
	)
	return err
}
