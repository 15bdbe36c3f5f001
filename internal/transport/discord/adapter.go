// Package discord adapts the chat gateway contract onto Discord: channel
// lifecycle, message delivery, role grants, and the inbound interaction
// stream.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/interaction"
	"github.com/spec-kit/gatekeeper/internal/service"
	"github.com/spec-kit/gatekeeper/internal/transport"
)

// Adapter implements transport.Gateway over a discordgo session and feeds
// inbound interaction events to the router.
type Adapter struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger

	router  *interaction.Router
	welcome *service.WelcomeService
}

// New creates a closed adapter; call Bind then Start.
func New(token, guildID string, logger *zap.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return &Adapter{session: session, guildID: guildID, logger: logger}, nil
}

// Bind attaches the event consumers. Must be called before Start.
func (a *Adapter) Bind(router *interaction.Router, welcome *service.WelcomeService) {
	a.router = router
	a.welcome = welcome
}

// Start opens the gateway connection and registers the command set.
func (a *Adapter) Start() error {
	a.session.AddHandler(a.onInteractionCreate)
	a.session.AddHandler(a.onGuildMemberAdd)

	if err := a.session.Open(); err != nil {
		return err
	}

	if _, err := a.session.ApplicationCommandBulkOverwrite(a.session.State.User.ID, a.guildID, commandSet()); err != nil {
		a.logger.Error("failed to register commands", zap.Error(err))
	}

	a.logger.Info("gateway connected", zap.String("guild_id", a.guildID))
	return nil
}

// Close shuts the gateway connection down.
func (a *Adapter) Close() error {
	return a.session.Close()
}

// CreateChannel creates a private text channel under the given category.
func (a *Adapter) CreateChannel(ctx context.Context, location, name, topic string, overrides []transport.PermissionOverride) (string, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(overrides))
	for _, o := range overrides {
		overwrite := &discordgo.PermissionOverwrite{ID: o.ID}
		switch o.Target {
		case transport.TargetEveryone:
			overwrite.ID = a.guildID
			overwrite.Type = discordgo.PermissionOverwriteTypeRole
		case transport.TargetRole:
			overwrite.Type = discordgo.PermissionOverwriteTypeRole
		case transport.TargetUser:
			overwrite.Type = discordgo.PermissionOverwriteTypeMember
		}
		perms := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory)
		if o.View {
			overwrite.Allow = perms
		} else {
			overwrite.Deny = perms
		}
		overwrites = append(overwrites, overwrite)
	}

	channel, err := a.session.GuildChannelCreateComplex(a.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             location,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

// SendMessage posts a message, rendering title/body as an embed and
// buttons as an action row.
func (a *Adapter) SendMessage(ctx context.Context, channelID string, msg transport.Message) error {
	data := &discordgo.MessageSend{Content: msg.Content}

	if msg.Title != "" || msg.Body != "" {
		embed := &discordgo.MessageEmbed{Title: msg.Title, Description: msg.Body}
		if msg.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Footer}
		}
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}

	if len(msg.Mentions) > 0 && msg.Content == "" {
		content := ""
		for _, id := range msg.Mentions {
			content += fmt.Sprintf("<@&%s> ", id)
		}
		data.Content = content
	}

	if len(msg.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range msg.Buttons {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.CustomID,
			})
		}
		data.Components = []discordgo.MessageComponent{row}
	}

	_, err := a.session.ChannelMessageSendComplex(channelID, data)
	return err
}

// GrantRole adds a role to a guild member.
func (a *Adapter) GrantRole(ctx context.Context, userID, roleID string) error {
	return a.session.GuildMemberRoleAdd(a.guildID, userID, roleID)
}

// DeleteChannel removes a channel.
func (a *Adapter) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithAuditLogReason(reason))
	return err
}

func (a *Adapter) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		ev := transport.SelectionEvent{
			SelectionID: i.MessageComponentData().CustomID,
			UserID:      i.Member.User.ID,
			UserName:    i.Member.User.Username,
		}
		reply, err := a.router.HandleSelection(ctx, ev)
		if err != nil {
			a.logger.Error("selection failed",
				zap.String("selection_id", ev.SelectionID),
				zap.String("user_id", ev.UserID),
				zap.Error(err))
		}
		a.respond(i, reply)

	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		args := make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			if v, ok := opt.Value.(string); ok {
				args[opt.Name] = v
			}
		}
		ev := transport.CommandEvent{
			Name:         data.Name,
			Args:         args,
			InvokerID:    i.Member.User.ID,
			InvokerName:  i.Member.User.Username,
			InvokerRoles: i.Member.Roles,
			IsAdmin:      i.Member.Permissions&discordgo.PermissionAdministrator != 0,
			ChannelID:    i.ChannelID,
		}
		reply, err := a.router.HandleCommand(ctx, ev)
		if err != nil {
			a.logger.Error("command failed",
				zap.String("command", ev.Name),
				zap.String("invoker_id", ev.InvokerID),
				zap.Error(err))
		}
		a.respond(i, reply)
	}
}

func (a *Adapter) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if err := a.welcome.Publish(context.Background(), m.User.ID); err != nil {
		a.logger.Warn("welcome prompt skipped", zap.String("user_id", m.User.ID), zap.Error(err))
	}
}

// respond acknowledges the interaction with a private reply. An empty
// reply means the event belongs to another component and stays
// unacknowledged.
func (a *Adapter) respond(i *discordgo.InteractionCreate, reply string) {
	if reply == "" {
		return
	}
	err := a.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		a.logger.Warn("failed to acknowledge interaction", zap.Error(err))
	}
}

func buttonStyle(style transport.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case transport.StyleSuccess:
		return discordgo.SuccessButton
	case transport.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
