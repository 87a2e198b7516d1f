package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arbiter/internal/config"
	"arbiter/internal/moderation"
	"arbiter/internal/modlog"
	"arbiter/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	recorder *moderation.Recorder
	history  *moderation.History
	notifier *modlog.Notifier
	session  *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, recorder *moderation.Recorder, history *moderation.History, notifier *modlog.Notifier) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		recorder: recorder,
		history:  history,
		notifier: notifier,
		session:  session,
	}
	if b.notifier != nil {
		b.notifier.SetAnnouncer(b.announceCase)
	}
	return b, nil
}

// Enforcer exposes the session-backed enforcement collaborator for the
// reconciler and command handlers.
func (b *Bot) Enforcer() moderation.Enforcer {
	return &sessionEnforcer{session: b.session}
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	if err := b.registerCommands(); err != nil {
		b.logger.Error("slash command registration failed", zap.Error(err))
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		_ = b.session.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (b *Bot) onReady(session *discordgo.Session, ready *discordgo.Ready) {
	b.logger.Info("gateway ready",
		zap.String("user", ready.User.Username),
		zap.Int("guilds", len(ready.Guilds)),
	)
}

// announceCase mirrors a recorded moderation action to the guild's configured
// logs channel, if any.
func (b *Bot) announceCase(ctx context.Context, event modlog.Event) {
	settings, err := b.store.GetGuildSettings(ctx, event.GuildID)
	if err != nil {
		b.logger.Warn("logs channel lookup failed", zap.Uint64("guild_id", event.GuildID), zap.Error(err))
		return
	}
	if settings.LogsChannelID == 0 {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Case", Value: strconv.FormatInt(event.CaseID, 10), Inline: true},
		{Name: "User", Value: mentionUser(event.UserID), Inline: true},
		{Name: "Moderator", Value: mentionUser(event.ModeratorID), Inline: true},
	}
	if event.Reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Reason", Value: event.Reason})
	}
	if event.ExpiryDate != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Expires", Value: formatTimestamp(*event.ExpiryDate)})
	}

	embed := &discordgo.MessageEmbed{
		Title:  event.Kind.String(),
		Color:  b.cfg.EmbedColors.Info,
		Fields: fields,
	}
	if _, err := b.session.ChannelMessageSendEmbed(snowflakeString(settings.LogsChannelID), embed); err != nil {
		b.logger.Warn("logs channel announcement failed",
			zap.Uint64("guild_id", event.GuildID),
			zap.Uint64("channel_id", settings.LogsChannelID),
			zap.Error(err),
		)
	}
}

func (b *Bot) successEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Color: b.cfg.EmbedColors.Success, Description: description}
}

func (b *Bot) errorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:  b.cfg.EmbedColors.Error,
		Fields: []*discordgo.MessageEmbedField{{Name: "Error!", Value: description}},
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}

// notifyUser DMs the target about their moderation. Returns false when the
// DM could not be delivered, e.g. closed DMs.
func (b *Bot) notifyUser(userID uint64, description, reason string, color int) bool {
	channel, err := b.session.UserChannelCreate(snowflakeString(userID))
	if err != nil {
		return false
	}
	embed := &discordgo.MessageEmbed{Color: color, Description: description}
	if reason != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}
	}
	_, err = b.session.ChannelMessageSendEmbed(channel.ID, embed)
	return err == nil
}

func (b *Bot) guildName(guildID uint64) string {
	guild, err := b.session.State.Guild(snowflakeString(guildID))
	if err != nil || guild.Name == "" {
		return "this server"
	}
	return guild.Name
}

// memberIsModerator reports whether the member holds any moderative
// permission, to refuse moderating other moderators.
func (b *Bot) memberIsModerator(guildID, userID uint64) (bool, error) {
	perms, err := b.memberPermissions(guildID, userID)
	if err != nil {
		return false, err
	}
	const moderative = discordgo.PermissionAdministrator |
		discordgo.PermissionKickMembers |
		discordgo.PermissionBanMembers |
		discordgo.PermissionModerateMembers
	return perms&moderative != 0, nil
}

func (b *Bot) memberPermissions(guildID, userID uint64) (int64, error) {
	guild, err := b.session.State.Guild(snowflakeString(guildID))
	if err != nil {
		guild, err = b.session.Guild(snowflakeString(guildID))
		if err != nil {
			return 0, err
		}
	}
	if guild.OwnerID == snowflakeString(userID) {
		return discordgo.PermissionAdministrator, nil
	}

	member, err := b.session.State.Member(guild.ID, snowflakeString(userID))
	if err != nil {
		member, err = b.session.GuildMember(guild.ID, snowflakeString(userID))
		if err != nil {
			return 0, err
		}
	}

	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID { // @everyone
			perms |= role.Permissions
			continue
		}
		for _, roleID := range member.Roles {
			if role.ID == roleID {
				perms |= role.Permissions
			}
		}
	}
	return perms, nil
}

func (b *Bot) guildPrefix(ctx context.Context, guildID uint64) string {
	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil || settings.Prefix == "" {
		return b.cfg.CommandPrefix
	}
	return settings.Prefix
}

func parseSnowflake(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

func snowflakeString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func mentionUser(id uint64) string {
	return "<@" + snowflakeString(id) + ">"
}

// formatTimestamp renders a Discord timestamp markup for embeds.
func formatTimestamp(at time.Time) string {
	return fmt.Sprintf("<t:%d:F>", at.Unix())
}

func appendExpiry(message string, expiry *time.Time) string {
	if expiry == nil {
		return message
	}
	return message + " until " + formatTimestamp(*expiry)
}

// parseMentionArg accepts a raw snowflake or a user/role/channel mention.
func parseMentionArg(value string) (uint64, error) {
	trimmed := strings.TrimSuffix(value, ">")
	trimmed = strings.TrimPrefix(trimmed, "<")
	trimmed = strings.TrimPrefix(trimmed, "@")
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "!")
	trimmed = strings.TrimPrefix(trimmed, "&")
	return parseSnowflake(trimmed)
}
