package modlog

import (
	"context"
	"time"

	"arbiter/internal/storage"

	"go.uber.org/zap"
)

// Event describes one recorded moderation action, for structured logging and
// for announcement in the guild's configured logs channel.
type Event struct {
	CaseID      int64
	GuildID     uint64
	UserID      uint64
	ModeratorID uint64
	Kind        storage.Kind
	Reason      string
	ExpiryDate  *time.Time
}

type Notifier struct {
	logger   *zap.Logger
	announce func(context.Context, Event)
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// SetAnnouncer installs the outbound side, typically the bot posting an embed
// to the guild's logs channel.
func (n *Notifier) SetAnnouncer(announce func(context.Context, Event)) {
	n.announce = announce
}

func (n *Notifier) Record(ctx context.Context, event Event) {
	fields := []zap.Field{
		zap.Int64("case_id", event.CaseID),
		zap.Uint64("guild_id", event.GuildID),
		zap.Uint64("user_id", event.UserID),
		zap.Uint64("moderator_id", event.ModeratorID),
		zap.String("kind", event.Kind.String()),
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if event.ExpiryDate != nil {
		fields = append(fields, zap.Time("expiry_date", *event.ExpiryDate))
	}
	n.logger.Info("moderation recorded", fields...)

	if n.announce != nil {
		n.announce(ctx, event)
	}
}
