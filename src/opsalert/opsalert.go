// Package opsalert posts reconciliation-worthy failures to a Discord channel
// so operators see them without grepping logs: records saved but never
// enqueued, records stuck non-terminal after retry exhaustion.
package opsalert

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

type Discord struct {
	session   *discordgo.Session
	channelID string
}

// New builds a Discord alerter. The session is used for REST sends only, so
// no gateway connection is opened.
func New(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Alert(ctx context.Context, message string) {
	if _, err := d.session.ChannelMessageSend(d.channelID, "⚠️ "+message); err != nil {
		log.Printf("opsalert: discord send failed: %v", err)
	}
}
