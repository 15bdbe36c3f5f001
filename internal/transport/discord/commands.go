package discord

import "github.com/bwmarrin/discordgo"

// commandSet defines the full slash command surface. Reviewer commands
// carry no default permission gate; the engine authorizes them against
// the configured reviewer roles.
func commandSet() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "approve",
			Description: "Approve the verification request in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Internal reason for approval (not shown to the user)",
				},
			},
		},
		{
			Name:        "deny",
			Description: "Deny the verification request in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Internal reason for denial (not shown to the user)",
				},
			},
		},
		{
			Name:                     "setup-roles",
			Description:              "Configure the roles for the verification system",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				roleOption("resident", "Role granted to approved residents"),
				roleOption("visitor", "Role granted to approved visitors"),
				roleOption("border_authority", "Role that handles resident/visitor requests"),
				roleOption("foreign_minister", "Foreign affairs minister role"),
				roleOption("head_of_state", "Head of state role"),
				roleOption("deputy_head_of_state", "Deputy head of state role"),
				roleOption("oversight", "Role that can see the decision log channel"),
			},
		},
		{
			Name:                     "setup-channel",
			Description:              "Configure the entry and verification channels",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("entry_channel", "Channel where welcome prompts are posted"),
				channelOption("ticket_category", "Category where ticket channels are created"),
				channelOption("log_channel", "Channel where decisions are logged"),
			},
		},
		{
			Name:                     "setup-message",
			Description:              "Set the welcome message",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Welcome message title",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "body",
					Description: "Welcome message body (supports markdown)",
				},
			},
		},
		{
			Name:                     "test-welcome",
			Description:              "Preview the welcome message",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "publish-welcome",
			Description:              "Post the welcome prompt to the entry channel",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "view-config",
			Description:              "View the current verification configuration",
			DefaultMemberPermissions: &adminOnly,
		},
	}
}

func roleOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: description,
	}
}

func channelOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionChannel,
		Name:        name,
		Description: description,
	}
}
