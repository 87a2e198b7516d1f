package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// sessionEnforcer performs moderation actions through the gateway session.
// Contexts are accepted for interface parity; discordgo manages its own HTTP
// timeouts.
type sessionEnforcer struct {
	session *discordgo.Session
}

func (e *sessionEnforcer) Ban(ctx context.Context, guildID, userID uint64) error {
	return e.session.GuildBanCreate(snowflakeString(guildID), snowflakeString(userID), 0)
}

func (e *sessionEnforcer) Unban(ctx context.Context, guildID, userID uint64) error {
	return e.session.GuildBanDelete(snowflakeString(guildID), snowflakeString(userID))
}

func (e *sessionEnforcer) Kick(ctx context.Context, guildID, userID uint64) error {
	return e.session.GuildMemberDelete(snowflakeString(guildID), snowflakeString(userID))
}

func (e *sessionEnforcer) GrantRole(ctx context.Context, guildID, userID, roleID uint64) error {
	return e.session.GuildMemberRoleAdd(snowflakeString(guildID), snowflakeString(userID), snowflakeString(roleID))
}

func (e *sessionEnforcer) RevokeRole(ctx context.Context, guildID, userID, roleID uint64) error {
	return e.session.GuildMemberRoleRemove(snowflakeString(guildID), snowflakeString(userID), snowflakeString(roleID))
}

// TimeoutUntil times the member out. A zero until clears the timeout.
func (e *sessionEnforcer) TimeoutUntil(ctx context.Context, guildID, userID uint64, until time.Time) error {
	if until.IsZero() {
		return e.session.GuildMemberTimeout(snowflakeString(guildID), snowflakeString(userID), nil)
	}
	return e.session.GuildMemberTimeout(snowflakeString(guildID), snowflakeString(userID), &until)
}
