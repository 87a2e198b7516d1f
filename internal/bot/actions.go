package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"arbiter/internal/moderation"
	"arbiter/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Discord rejects timeouts of 28 days or longer.
const maxTimeoutLength = 28 * 24 * time.Hour

var (
	errTargetIsModerator = errors.New("target user is a moderator")
	errTimeoutTooLong    = errors.New("timeouts must be shorter than 28 days")
)

func (b *Bot) checkTarget(guildID, targetID uint64) error {
	isMod, err := b.memberIsModerator(guildID, targetID)
	if err != nil {
		// The target may not be a member at all (e.g. banning by id).
		return nil
	}
	if isMod {
		return errTargetIsModerator
	}
	return nil
}

func (b *Bot) doWarn(ctx context.Context, guildID, moderatorID, targetID uint64, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.checkTarget(guildID, targetID); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("You have been warned in **%s**", b.guildName(guildID)),
		reason, b.cfg.EmbedColors.Error)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:     guildID,
		UserID:      targetID,
		ModeratorID: moderatorID,
		Kind:        storage.KindWarning,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}

	return b.actionEmbed(fmt.Sprintf("User %s has been warned (case %d)", mentionUser(targetID), id), reason, targetID, dmOK), nil
}

func (b *Bot) doDelWarn(ctx context.Context, guildID uint64, caseID int64) (*discordgo.MessageEmbed, error) {
	if err := b.recorder.ClearWarning(ctx, guildID, caseID); err != nil {
		return nil, err
	}
	return b.successEmbed(fmt.Sprintf("Deleted warning **%d**", caseID)), nil
}

func (b *Bot) doBan(ctx context.Context, guildID, moderatorID, targetID uint64, length time.Duration, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.checkTarget(guildID, targetID); err != nil {
		return nil, err
	}

	administeredAt := time.Now()
	var expiry *time.Time
	if length > 0 {
		at := administeredAt.Add(length)
		expiry = &at
	}

	dmOK := b.notifyUser(targetID,
		appendExpiry(fmt.Sprintf("You have been banned from **%s**", b.guildName(guildID)), expiry),
		reason, b.cfg.EmbedColors.Error)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:        guildID,
		UserID:         targetID,
		ModeratorID:    moderatorID,
		Kind:           storage.KindBan,
		AdministeredAt: administeredAt,
		ExpiryDate:     expiry,
		Reason:         reason,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Enforcer().Ban(ctx, guildID, targetID); err != nil {
		return nil, err
	}

	message := appendExpiry(fmt.Sprintf("User %s has been banned (case %d)", mentionUser(targetID), id), expiry)
	return b.actionEmbed(message, reason, targetID, dmOK), nil
}

func (b *Bot) doUnban(ctx context.Context, guildID, moderatorID, targetID uint64, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.Enforcer().Unban(ctx, guildID, targetID); err != nil {
		return nil, err
	}
	if err := b.recorder.CloseSanction(ctx, guildID, targetID, storage.KindBan); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("You have been unbanned from **%s**", b.guildName(guildID)),
		reason, b.cfg.EmbedColors.Success)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:     guildID,
		UserID:      targetID,
		ModeratorID: moderatorID,
		Kind:        storage.KindUnban,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	return b.actionEmbed(fmt.Sprintf("User %s has been unbanned (case %d)", mentionUser(targetID), id), reason, targetID, dmOK), nil
}

func (b *Bot) doKick(ctx context.Context, guildID, moderatorID, targetID uint64, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.checkTarget(guildID, targetID); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("You have been kicked from **%s**", b.guildName(guildID)),
		reason, b.cfg.EmbedColors.Error)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:     guildID,
		UserID:      targetID,
		ModeratorID: moderatorID,
		Kind:        storage.KindKick,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Enforcer().Kick(ctx, guildID, targetID); err != nil {
		return nil, err
	}
	return b.actionEmbed(fmt.Sprintf("User %s has been kicked (case %d)", mentionUser(targetID), id), reason, targetID, dmOK), nil
}

func (b *Bot) doTimeout(ctx context.Context, guildID, moderatorID, targetID uint64, length time.Duration, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.checkTarget(guildID, targetID); err != nil {
		return nil, err
	}
	if length >= maxTimeoutLength {
		return nil, errTimeoutTooLong
	}

	administeredAt := time.Now()
	expiryAt := administeredAt.Add(length)

	// Apply the timeout first so a rejected one is never recorded.
	if err := b.Enforcer().TimeoutUntil(ctx, guildID, targetID, expiryAt); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("You have been timed out in **%s** until %s", b.guildName(guildID), formatTimestamp(expiryAt)),
		reason, b.cfg.EmbedColors.Error)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:        guildID,
		UserID:         targetID,
		ModeratorID:    moderatorID,
		Kind:           storage.KindTimeout,
		AdministeredAt: administeredAt,
		ExpiryDate:     &expiryAt,
		Reason:         reason,
	})
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("User %s has been timed out until %s (case %d)", mentionUser(targetID), formatTimestamp(expiryAt), id)
	return b.actionEmbed(message, reason, targetID, dmOK), nil
}

func (b *Bot) doUntimeout(ctx context.Context, guildID, moderatorID, targetID uint64, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.recorder.CloseSanction(ctx, guildID, targetID, storage.KindTimeout); err != nil {
		return nil, err
	}
	if err := b.Enforcer().TimeoutUntil(ctx, guildID, targetID, time.Time{}); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("Your timeout in **%s** has been revoked", b.guildName(guildID)),
		reason, b.cfg.EmbedColors.Success)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:     guildID,
		UserID:      targetID,
		ModeratorID: moderatorID,
		Kind:        storage.KindUntimeout,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	return b.actionEmbed(fmt.Sprintf("User %s is no longer timed out (case %d)", mentionUser(targetID), id), reason, targetID, dmOK), nil
}

func (b *Bot) doMute(ctx context.Context, guildID, moderatorID, targetID uint64, length time.Duration, reason string) (*discordgo.MessageEmbed, error) {
	if err := b.checkTarget(guildID, targetID); err != nil {
		return nil, err
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings.MuteRoleID == 0 {
		return nil, moderation.ErrMuteRoleNotSet
	}

	administeredAt := time.Now()
	var expiry *time.Time
	if length > 0 {
		at := administeredAt.Add(length)
		expiry = &at
	}

	dmOK := b.notifyUser(targetID,
		appendExpiry(fmt.Sprintf("You have been muted in **%s**", b.guildName(guildID)), expiry),
		reason, b.cfg.EmbedColors.Error)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:        guildID,
		UserID:         targetID,
		ModeratorID:    moderatorID,
		Kind:           storage.KindMute,
		AdministeredAt: administeredAt,
		ExpiryDate:     expiry,
		Reason:         reason,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Enforcer().GrantRole(ctx, guildID, targetID, settings.MuteRoleID); err != nil {
		return nil, err
	}
	message := appendExpiry(fmt.Sprintf("User %s has been muted (case %d)", mentionUser(targetID), id), expiry)
	return b.actionEmbed(message, reason, targetID, dmOK), nil
}

func (b *Bot) doUnmute(ctx context.Context, guildID, moderatorID, targetID uint64, reason string) (*discordgo.MessageEmbed, error) {
	settings, err := b.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings.MuteRoleID == 0 {
		return nil, moderation.ErrMuteRoleNotSet
	}

	if err := b.recorder.CloseSanction(ctx, guildID, targetID, storage.KindMute); err != nil {
		return nil, err
	}
	if err := b.Enforcer().RevokeRole(ctx, guildID, targetID, settings.MuteRoleID); err != nil {
		return nil, err
	}

	dmOK := b.notifyUser(targetID,
		fmt.Sprintf("You have been unmuted in **%s**", b.guildName(guildID)),
		reason, b.cfg.EmbedColors.Success)

	id, err := b.recorder.Record(ctx, moderation.RecordRequest{
		GuildID:     guildID,
		UserID:      targetID,
		ModeratorID: moderatorID,
		Kind:        storage.KindUnmute,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	return b.actionEmbed(fmt.Sprintf("User %s has been unmuted (case %d)", mentionUser(targetID), id), reason, targetID, dmOK), nil
}

func (b *Bot) doModlogs(ctx context.Context, guildID, targetID uint64, targetName string, page int) (*discordgo.MessageEmbed, error) {
	result, err := b.history.Modlogs(ctx, guildID, targetID, page, moderation.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return b.historyEmbed(fmt.Sprintf("Modlogs for %s", targetName), result, true), nil
}

func (b *Bot) doWarnings(ctx context.Context, guildID, targetID uint64, targetName string, page int) (*discordgo.MessageEmbed, error) {
	result, err := b.history.Warnings(ctx, guildID, targetID, page, moderation.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return b.historyEmbed(fmt.Sprintf("Warnings for %s", targetName), result, false), nil
}

func (b *Bot) doMuteRole(ctx context.Context, guildID, roleID uint64) (*discordgo.MessageEmbed, error) {
	if err := b.store.SetMuteRole(ctx, guildID, roleID); err != nil {
		return nil, err
	}
	embed := b.successEmbed(fmt.Sprintf("Role <@&%s> has been assigned as the mute role.", snowflakeString(roleID)))
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name:  "Note",
		Value: "This does *not* change channel permissions; configure the role's overrides before muting.",
	}}
	return embed, nil
}

func (b *Bot) doLogsChannel(ctx context.Context, guildID, channelID uint64) (*discordgo.MessageEmbed, error) {
	if err := b.store.SetLogsChannel(ctx, guildID, channelID); err != nil {
		return nil, err
	}
	return b.successEmbed(fmt.Sprintf("Moderation actions will be logged in <#%s>.", snowflakeString(channelID))), nil
}

func (b *Bot) doPrefix(ctx context.Context, guildID uint64, prefix string) (*discordgo.MessageEmbed, error) {
	if err := b.store.SetPrefix(ctx, guildID, prefix); err != nil {
		return nil, err
	}
	return b.successEmbed(fmt.Sprintf("Command prefix set to `%s`.", prefix)), nil
}

func (b *Bot) actionEmbed(message, reason string, targetID uint64, dmOK bool) *discordgo.MessageEmbed {
	embed := b.successEmbed(message)
	if reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: reason})
	}
	if !dmOK {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "The user could not be notified by DM.",
		}
	}
	return embed
}

func (b *Bot) historyEmbed(title string, page moderation.HistoryPage, showKind bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: b.cfg.EmbedColors.Info,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d", page.Page, page.MaxPage),
		},
	}
	if len(page.Entries) == 0 {
		embed.Description = "No entries."
		return embed
	}

	for _, entry := range page.Entries {
		name := fmt.Sprintf("ID %d", entry.ID)
		if showKind {
			name = fmt.Sprintf("ID %d — %s", entry.ID, entry.Kind)
		}
		value := fmt.Sprintf("**Moderator:** %s\n**Administered at:** %s",
			mentionUser(entry.ModeratorID), formatTimestamp(entry.AdministeredAt))
		if entry.ExpiryDate != nil {
			value += "\n**Expires:** " + formatTimestamp(*entry.ExpiryDate)
		}
		if entry.Reason != "" {
			value += "\n**Reason:** " + entry.Reason
		}
		if showKind && !entry.Active && entry.Kind.ActiveOnCreate() {
			value += "\n*(no longer active)*"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
	}
	return embed
}

func userFacingError(err error) string {
	var pageErr *moderation.PageOutOfBoundsError
	var notAWarning *moderation.NotAWarningError
	var usage *usageError

	switch {
	case errors.As(err, &usage):
		return "Usage: `" + usage.usage + "`"
	case errors.Is(err, errTargetIsModerator):
		return "That user is a moderator!"
	case errors.Is(err, errTimeoutTooLong):
		return "Timeouts must be shorter than 28 days."
	case errors.Is(err, moderation.ErrMuteRoleNotSet):
		return "Mute role has not been set! Use the `muterole` command first."
	case errors.Is(err, storage.ErrNotFound):
		return "No such modlog entry."
	case errors.As(err, &pageErr):
		return fmt.Sprintf("Page %d does not exist; the last page is %d.", pageErr.Requested, pageErr.Max)
	case errors.As(err, &notAWarning):
		return fmt.Sprintf("Modlog %s is not a warning!", strconv.FormatInt(notAWarning.ID, 10))
	}
	return "Something went wrong running that command."
}
