package bot

import "github.com/bwmarrin/discordgo"

var (
	permKick     int64 = discordgo.PermissionKickMembers
	permBan      int64 = discordgo.PermissionBanMembers
	permModerate int64 = discordgo.PermissionModerateMembers
	permAdmin    int64 = discordgo.PermissionAdministrator
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: description,
	}
}

func lengthOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "length",
		Description: description,
		Required:    required,
	}
}

func pageOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "page",
		Description: "Page number",
	}
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "warn",
			Description:              "Warn a user",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to warn"),
				reasonOption("Reason for the warning"),
			},
		},
		{
			Name:                     "delwarn",
			Description:              "Delete a warning by its modlog id",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Modlog id to remove",
					Required:    true,
				},
			},
		},
		{
			Name:                     "warnings",
			Description:              "List a user's active warnings",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to list warnings for"),
				pageOption(),
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a user, optionally for a limited time",
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to ban"),
				lengthOption("Length of the ban, e.g. 3d", false),
				reasonOption("Reason for the ban"),
			},
		},
		{
			Name:                     "unban",
			Description:              "Unban a user",
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to unban"),
				reasonOption("Reason for the unban"),
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a user",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to kick"),
				reasonOption("Reason for the kick"),
			},
		},
		{
			Name:                     "timeout",
			Description:              "Time out a user",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to time out"),
				lengthOption("Length of the timeout, e.g. 10m", true),
				reasonOption("Reason for the timeout"),
			},
		},
		{
			Name:                     "untimeout",
			Description:              "Revoke a user's timeout",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to untimeout"),
				reasonOption("Reason for the untimeout"),
			},
		},
		{
			Name:                     "mute",
			Description:              "Mute a user, optionally for a limited time",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to mute"),
				lengthOption("Length of the mute, e.g. 1h", false),
				reasonOption("Reason for the mute"),
			},
		},
		{
			Name:                     "unmute",
			Description:              "Unmute a user",
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to unmute"),
				reasonOption("Reason for the unmute"),
			},
		},
		{
			Name:                     "modlogs",
			Description:              "Show a user's moderation history",
			DefaultMemberPermissions: &permKick,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to show history for"),
				pageOption(),
			},
		},
		{
			Name:                     "muterole",
			Description:              "Set the role granted to muted users",
			DefaultMemberPermissions: &permAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Mute role",
					Required:    true,
				},
			},
		},
		{
			Name:                     "logschannel",
			Description:              "Set the channel moderation actions are logged to",
			DefaultMemberPermissions: &permAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Logs channel",
					Required:    true,
				},
			},
		},
		{
			Name:                     "prefix",
			Description:              "Set the prefix for text commands",
			DefaultMemberPermissions: &permAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "New prefix",
					Required:    true,
				},
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	return err
}
