package gateway

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway posts messages to Discord channels over the REST API.
type DiscordGateway struct {
	Session *discordgo.Session
}

func NewDiscordGateway(token string) (*DiscordGateway, error) {
	if token == "" {
		return nil, errors.New("discord: empty bot token")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	return &DiscordGateway{Session: s}, nil
}

func (d *DiscordGateway) Name() string { return "discord" }

func (d *DiscordGateway) Send(channelID string, text string) error {
	if channelID == "" {
		return errors.New("discord: empty channel ID")
	}
	_, err := d.Session.ChannelMessageSend(channelID, text)
	return err
}

func (d *DiscordGateway) Stop() error {
	return d.Session.Close()
}
