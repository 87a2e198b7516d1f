package moderation

import (
	"context"
	"time"

	"arbiter/internal/storage"

	"go.uber.org/zap"
)

// Enforcer performs real-world moderation actions against the platform.
type Enforcer interface {
	Ban(ctx context.Context, guildID, userID uint64) error
	Unban(ctx context.Context, guildID, userID uint64) error
	Kick(ctx context.Context, guildID, userID uint64) error
	GrantRole(ctx context.Context, guildID, userID, roleID uint64) error
	RevokeRole(ctx context.Context, guildID, userID, roleID uint64) error
	TimeoutUntil(ctx context.Context, guildID, userID uint64, until time.Time) error
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Reconciler periodically brings the ledger's active flags back in sync with
// wall-clock time, reversing the real-world effect of expired sanctions.
type Reconciler struct {
	store    *storage.Store
	enforcer Enforcer
	logger   *zap.Logger
	interval time.Duration
	clock    Clock
}

func NewReconciler(store *storage.Store, enforcer Enforcer, logger *zap.Logger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Reconciler{
		store:    store,
		enforcer: enforcer,
		logger:   logger,
		interval: interval,
		clock:    realClock{},
	}
}

func (r *Reconciler) WithClock(clock Clock) {
	r.clock = clock
}

// Run sweeps until the context is cancelled. Each iteration sleeps the full
// interval after completing, so sweeps never overlap.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.interval):
		}
		r.Sweep(ctx)
	}
}

// Sweep performs one reconciliation pass: find expired active sanctions,
// attempt each compensating action, then deactivate the whole batch. A failed
// compensating action is logged and does not keep its row active; the
// platform remains the authority on enforcement state, the ledger is history.
func (r *Reconciler) Sweep(ctx context.Context) {
	now := r.clock.Now()

	expired, err := r.store.FindExpiredActive(ctx, now)
	if err != nil {
		r.logger.Error("expiry scan failed", zap.Error(err))
		return
	}

	for _, sanction := range expired {
		if err := r.compensate(ctx, sanction); err != nil {
			r.logger.Warn("compensating action failed",
				zap.Uint64("guild_id", sanction.GuildID),
				zap.Uint64("user_id", sanction.UserID),
				zap.String("kind", sanction.Kind.String()),
				zap.Error(err),
			)
		}
	}

	if err := r.store.DeactivateExpired(ctx, now); err != nil {
		r.logger.Error("deactivating expired sanctions failed", zap.Error(err))
	}
}

func (r *Reconciler) compensate(ctx context.Context, sanction storage.ExpiredSanction) error {
	switch sanction.Kind {
	case storage.KindBan:
		return r.enforcer.Unban(ctx, sanction.GuildID, sanction.UserID)
	case storage.KindMute:
		settings, err := r.store.GetGuildSettings(ctx, sanction.GuildID)
		if err != nil {
			return err
		}
		if settings.MuteRoleID == 0 {
			// No mute role configured, nothing was granted to revoke.
			return nil
		}
		return r.enforcer.RevokeRole(ctx, sanction.GuildID, sanction.UserID, settings.MuteRoleID)
	default:
		// Timeouts expire platform-side; other kinds never carry an expiry.
		return nil
	}
}
