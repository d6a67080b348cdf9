package notify

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts submission announcements to a Discord channel over the REST
// API. No Gateway connection is opened; sending needs only the bot token.
type Discord struct {
	sess      discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
}

// NewDiscord creates a Discord notifier, or nil when the token is unset.
func NewDiscord(opts DiscordOpts) *Discord {
	if opts.BotToken == "" || opts.ChannelID == "" {
		return nil
	}
	sess, err := discordgo.New("Bot " + opts.BotToken)
	if err != nil {
		log.Printf("notify: discord session: %v", err)
		return nil
	}
	return &Discord{sess: sess, channelID: opts.ChannelID}
}

// SubmissionReceived posts the announcement to the configured channel.
func (d *Discord) SubmissionReceived(name, island, sector string, citizenID uint) error {
	text := announcement(name, island, sector, citizenID)
	if _, err := d.sess.ChannelMessageSend(d.channelID, text); err != nil {
		return fmt.Errorf("notify: discord post: %w", err)
	}
	return nil
}
