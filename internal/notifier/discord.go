// Package notifier delivers free-game announcements to Discord channels and,
// optionally, a Discord webhook.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

// WebhookDestination is the destination name used for the configured webhook.
const WebhookDestination = "webhook"

// ChannelAPI is the subset of *discordgo.Session used for delivery.
type ChannelAPI interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// Client resolves destinations and publishes announcements.
type Client struct {
	api         ChannelAPI
	guilds      func() []string
	channelIDs  []string
	channelName string
	webhook     *Webhook
	renderer    Renderer
}

// New builds a client on top of an open session. webhook may be nil.
func New(s *discordgo.Session, cfg *config.Config, webhook *Webhook) *Client {
	return newClient(s, sessionGuilds(s), cfg, webhook)
}

func newClient(api ChannelAPI, guilds func() []string, cfg *config.Config, webhook *Webhook) *Client {
	return &Client{
		api:         api,
		guilds:      guilds,
		channelIDs:  cfg.ChannelIDs,
		channelName: cfg.ChannelName,
		webhook:     webhook,
		renderer:    NewRenderer(cfg.Location),
	}
}

// sessionGuilds lists the guilds the bot has joined, from the gateway cache.
func sessionGuilds(s *discordgo.Session) func() []string {
	return func() []string {
		if s == nil || s.State == nil {
			return nil
		}
		s.State.RLock()
		defer s.State.RUnlock()
		ids := make([]string, 0, len(s.State.Guilds))
		for _, g := range s.State.Guilds {
			ids = append(ids, g.ID)
		}
		return ids
	}
}

// Renderer exposes the card renderer for command replies.
func (c *Client) Renderer() Renderer { return c.renderer }

// Destinations returns target alone when set. Otherwise it returns the
// configured channels, every guild text channel named like the configured
// channel name, and the webhook when configured.
func (c *Client) Destinations(ctx context.Context, target string) ([]string, error) {
	if target != "" {
		return []string{target}, nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range c.channelIDs {
		add(id)
	}

	var errs []error
	if c.channelName != "" && c.guilds != nil {
		for _, guildID := range c.guilds() {
			channels, err := c.api.GuildChannels(guildID, discordgo.WithContext(ctx))
			if err != nil {
				slog.Warn("Failed to list guild channels", "guild", guildID, "error", err)
				errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
				continue
			}
			for _, ch := range channels {
				if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, c.channelName) {
					add(ch.ID)
				}
			}
		}
	}

	if c.webhook != nil {
		add(WebhookDestination)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Publish posts the headers and cards of a to one destination, stopping at
// the first failed message.
func (c *Client) Publish(ctx context.Context, destination string, a models.Announcement) error {
	sections := c.renderer.sections(a)
	if destination == WebhookDestination {
		if c.webhook == nil {
			return fmt.Errorf("webhook destination not configured")
		}
		for _, s := range sections {
			if err := c.webhook.PostEmbeds(ctx, s.header, s.embeds); err != nil {
				return fmt.Errorf("webhook: %w", err)
			}
		}
		return nil
	}

	for _, s := range sections {
		if _, err := c.api.ChannelMessageSend(destination, s.header, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send header to channel %s: %w", destination, err)
		}
		for _, e := range s.embeds {
			if _, err := c.api.ChannelMessageSendEmbed(destination, e, discordgo.WithContext(ctx)); err != nil {
				return fmt.Errorf("send card %q to channel %s: %w", e.Title, destination, err)
			}
		}
	}
	slog.Debug("Announcement delivered", "channel", destination, "current", len(a.Current), "upcoming", len(a.Upcoming))
	return nil
}
