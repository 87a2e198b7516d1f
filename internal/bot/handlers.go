package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return "usage: " + e.usage
}

// commandPermissions maps text commands to the permission required to run
// them, mirroring the slash command defaults.
var commandPermissions = map[string]int64{
	"warn":        discordgo.PermissionKickMembers,
	"delwarn":     discordgo.PermissionKickMembers,
	"warnings":    discordgo.PermissionKickMembers,
	"ban":         discordgo.PermissionBanMembers,
	"unban":       discordgo.PermissionBanMembers,
	"kick":        discordgo.PermissionKickMembers,
	"timeout":     discordgo.PermissionModerateMembers,
	"untimeout":   discordgo.PermissionModerateMembers,
	"mute":        discordgo.PermissionModerateMembers,
	"unmute":      discordgo.PermissionModerateMembers,
	"modlogs":     discordgo.PermissionKickMembers,
	"muterole":    discordgo.PermissionAdministrator,
	"logschannel": discordgo.PermissionAdministrator,
	"prefix":      discordgo.PermissionAdministrator,
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := interaction.ApplicationCommandData()
	if _, known := commandPermissions[data.Name]; !known {
		return
	}
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("This command can only be used in a server."))
		return
	}

	ctx := context.Background()
	guildID, err := parseSnowflake(interaction.GuildID)
	if err != nil {
		return
	}
	moderatorID, err := parseSnowflake(interaction.Member.User.ID)
	if err != nil {
		return
	}

	embed, err := b.dispatchInteraction(ctx, session, interaction, data, guildID, moderatorID)
	if err != nil {
		b.logger.Warn("command failed",
			zap.String("command", data.Name),
			zap.Uint64("guild_id", guildID),
			zap.Error(err),
		)
		embed = b.errorEmbed(userFacingError(err))
	}
	b.respondEmbed(session, interaction, embed)
}

func (b *Bot) dispatchInteraction(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData, guildID, moderatorID uint64) (*discordgo.MessageEmbed, error) {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, option := range data.Options {
		options[option.Name] = option
	}

	optString := func(name string) string {
		if option, ok := options[name]; ok {
			return option.StringValue()
		}
		return ""
	}
	optInt := func(name string, fallback int64) int64 {
		if option, ok := options[name]; ok {
			return option.IntValue()
		}
		return fallback
	}

	var target *discordgo.User
	if option, ok := options["user"]; ok {
		target = option.UserValue(session)
	}
	targetID := uint64(0)
	targetName := ""
	if target != nil {
		var err error
		targetID, err = parseSnowflake(target.ID)
		if err != nil {
			return nil, err
		}
		targetName = target.Username
	}

	reason := optString("reason")

	switch data.Name {
	case "warn":
		return b.doWarn(ctx, guildID, moderatorID, targetID, reason)
	case "delwarn":
		return b.doDelWarn(ctx, guildID, optInt("id", 0))
	case "warnings":
		return b.doWarnings(ctx, guildID, targetID, targetName, int(optInt("page", 1)))
	case "ban":
		length := time.Duration(0)
		if raw := optString("length"); raw != "" {
			parsed, err := parseLength(raw)
			if err != nil {
				return nil, err
			}
			length = parsed
		}
		return b.doBan(ctx, guildID, moderatorID, targetID, length, reason)
	case "unban":
		return b.doUnban(ctx, guildID, moderatorID, targetID, reason)
	case "kick":
		return b.doKick(ctx, guildID, moderatorID, targetID, reason)
	case "timeout":
		length, err := parseLength(optString("length"))
		if err != nil {
			return nil, err
		}
		return b.doTimeout(ctx, guildID, moderatorID, targetID, length, reason)
	case "untimeout":
		return b.doUntimeout(ctx, guildID, moderatorID, targetID, reason)
	case "mute":
		length := time.Duration(0)
		if raw := optString("length"); raw != "" {
			parsed, err := parseLength(raw)
			if err != nil {
				return nil, err
			}
			length = parsed
		}
		return b.doMute(ctx, guildID, moderatorID, targetID, length, reason)
	case "unmute":
		return b.doUnmute(ctx, guildID, moderatorID, targetID, reason)
	case "modlogs":
		return b.doModlogs(ctx, guildID, targetID, targetName, int(optInt("page", 1)))
	case "muterole":
		role := options["role"].RoleValue(session, interaction.GuildID)
		roleID, err := parseSnowflake(role.ID)
		if err != nil {
			return nil, err
		}
		return b.doMuteRole(ctx, guildID, roleID)
	case "logschannel":
		channel := options["channel"].ChannelValue(session)
		channelID, err := parseSnowflake(channel.ID)
		if err != nil {
			return nil, err
		}
		return b.doLogsChannel(ctx, guildID, channelID)
	case "prefix":
		return b.doPrefix(ctx, guildID, optString("value"))
	}
	return nil, nil
}

func (b *Bot) onMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	if message.Author == nil || message.Author.Bot || message.GuildID == "" {
		return
	}

	ctx := context.Background()
	guildID, err := parseSnowflake(message.GuildID)
	if err != nil {
		return
	}

	prefix := b.guildPrefix(ctx, guildID)
	if !strings.HasPrefix(message.Content, prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(message.Content, prefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	required, known := commandPermissions[command]
	if !known {
		return
	}

	authorID, err := parseSnowflake(message.Author.ID)
	if err != nil {
		return
	}
	perms, err := b.memberPermissions(guildID, authorID)
	if err != nil {
		b.logger.Warn("permission lookup failed", zap.Uint64("guild_id", guildID), zap.Error(err))
		return
	}
	if perms&required == 0 && perms&discordgo.PermissionAdministrator == 0 {
		b.sendEmbed(message.ChannelID, b.errorEmbed("You do not have permission to run this command."))
		return
	}

	embed, err := b.runTextCommand(ctx, command, guildID, authorID, args)
	if err != nil {
		b.logger.Warn("command failed",
			zap.String("command", command),
			zap.Uint64("guild_id", guildID),
			zap.Error(err),
		)
		embed = b.errorEmbed(userFacingError(err))
	}
	if embed != nil {
		b.sendEmbed(message.ChannelID, embed)
	}
}

func (b *Bot) runTextCommand(ctx context.Context, command string, guildID, moderatorID uint64, args []string) (*discordgo.MessageEmbed, error) {
	targetArg := func(usage string) (uint64, error) {
		if len(args) == 0 {
			return 0, &usageError{usage: usage}
		}
		id, err := parseMentionArg(args[0])
		if err != nil {
			return 0, &usageError{usage: usage}
		}
		return id, nil
	}
	rest := func(from int) string {
		if len(args) <= from {
			return ""
		}
		return strings.Join(args[from:], " ")
	}
	// Timed commands accept an optional duration as the second argument; if
	// it does not parse, it is part of the reason.
	optionalLength := func() (time.Duration, string) {
		if len(args) > 1 {
			if parsed, err := parseLength(args[1]); err == nil {
				return parsed, rest(2)
			}
		}
		return 0, rest(1)
	}

	switch command {
	case "warn":
		target, err := targetArg("warn <user> [reason]")
		if err != nil {
			return nil, err
		}
		return b.doWarn(ctx, guildID, moderatorID, target, rest(1))
	case "delwarn":
		if len(args) == 0 {
			return nil, &usageError{usage: "delwarn <id>"}
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, &usageError{usage: "delwarn <id>"}
		}
		return b.doDelWarn(ctx, guildID, id)
	case "warnings", "modlogs":
		target, err := targetArg(command + " <user> [page]")
		if err != nil {
			return nil, err
		}
		page := 1
		if len(args) > 1 {
			if parsed, err := strconv.Atoi(args[1]); err == nil {
				page = parsed
			}
		}
		if command == "warnings" {
			return b.doWarnings(ctx, guildID, target, b.userName(target), page)
		}
		return b.doModlogs(ctx, guildID, target, b.userName(target), page)
	case "ban":
		target, err := targetArg("ban <user> [length] [reason]")
		if err != nil {
			return nil, err
		}
		length, reason := optionalLength()
		return b.doBan(ctx, guildID, moderatorID, target, length, reason)
	case "unban":
		target, err := targetArg("unban <user> [reason]")
		if err != nil {
			return nil, err
		}
		return b.doUnban(ctx, guildID, moderatorID, target, rest(1))
	case "kick":
		target, err := targetArg("kick <user> [reason]")
		if err != nil {
			return nil, err
		}
		return b.doKick(ctx, guildID, moderatorID, target, rest(1))
	case "timeout":
		target, err := targetArg("timeout <user> <length> [reason]")
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, &usageError{usage: "timeout <user> <length> [reason]"}
		}
		length, err := parseLength(args[1])
		if err != nil {
			return nil, err
		}
		return b.doTimeout(ctx, guildID, moderatorID, target, length, rest(2))
	case "untimeout":
		target, err := targetArg("untimeout <user> [reason]")
		if err != nil {
			return nil, err
		}
		return b.doUntimeout(ctx, guildID, moderatorID, target, rest(1))
	case "mute":
		target, err := targetArg("mute <user> [length] [reason]")
		if err != nil {
			return nil, err
		}
		length, reason := optionalLength()
		return b.doMute(ctx, guildID, moderatorID, target, length, reason)
	case "unmute":
		target, err := targetArg("unmute <user> [reason]")
		if err != nil {
			return nil, err
		}
		return b.doUnmute(ctx, guildID, moderatorID, target, rest(1))
	case "muterole":
		role, err := targetArg("muterole <role>")
		if err != nil {
			return nil, err
		}
		return b.doMuteRole(ctx, guildID, role)
	case "logschannel":
		channel, err := targetArg("logschannel <channel>")
		if err != nil {
			return nil, err
		}
		return b.doLogsChannel(ctx, guildID, channel)
	case "prefix":
		if len(args) == 0 {
			return nil, &usageError{usage: "prefix <value>"}
		}
		return b.doPrefix(ctx, guildID, args[0])
	}
	return nil, nil
}

func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("message send failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (b *Bot) userName(userID uint64) string {
	user, err := b.session.User(snowflakeString(userID))
	if err != nil || user.Username == "" {
		return snowflakeString(userID)
	}
	return user.Username
}
