package notify

import (
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts submission announcements to a Slack channel.
type Slack struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post to
}

// NewSlack creates a Slack notifier, or nil when the token is unset.
func NewSlack(opts SlackOpts) *Slack {
	if opts.BotToken == "" || opts.ChannelID == "" {
		return nil
	}
	return &Slack{
		client:    slackapi.New(opts.BotToken),
		channelID: opts.ChannelID,
	}
}

// SubmissionReceived posts the announcement to the configured channel.
func (s *Slack) SubmissionReceived(name, island, sector string, citizenID uint) error {
	text := announcement(name, island, sector, citizenID)
	_, _, err := s.client.PostMessage(s.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
