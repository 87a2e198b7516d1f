package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbiter/internal/modlog"
	"arbiter/internal/storage"
)

// ErrMuteRoleNotSet is returned when a mute is attempted in a guild with no
// configured mute role.
var ErrMuteRoleNotSet = errors.New("mute role is not configured")

// RecordRequest carries everything needed to append one ledger entry.
type RecordRequest struct {
	GuildID        uint64
	UserID         uint64
	ModeratorID    uint64
	Kind           storage.Kind
	AdministeredAt time.Time
	ExpiryDate     *time.Time
	Reason         string
}

// Recorder appends moderation entries while preserving the ledger invariants:
// recording a timed sanction supersedes the previous active one of the same
// kind, and reversal kinds are recorded already inactive.
type Recorder struct {
	store    *storage.Store
	notifier *modlog.Notifier
}

func NewRecorder(store *storage.Store, notifier *modlog.Notifier) *Recorder {
	return &Recorder{store: store, notifier: notifier}
}

// Record persists the entry and returns its per-guild case id. The
// supersession of a standing sanction of the same kind happens inside the
// insert transaction.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (int64, error) {
	administeredAt := req.AdministeredAt
	if administeredAt.IsZero() {
		administeredAt = time.Now()
	}

	id, err := r.store.InsertModeration(ctx, storage.Moderation{
		GuildID:        req.GuildID,
		UserID:         req.UserID,
		ModeratorID:    req.ModeratorID,
		Kind:           req.Kind,
		AdministeredAt: administeredAt,
		ExpiryDate:     req.ExpiryDate,
		Reason:         req.Reason,
		Active:         req.Kind.ActiveOnCreate(),
	})
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", req.Kind, err)
	}

	if r.notifier != nil {
		r.notifier.Record(ctx, modlog.Event{
			CaseID:      id,
			GuildID:     req.GuildID,
			UserID:      req.UserID,
			ModeratorID: req.ModeratorID,
			Kind:        req.Kind,
			Reason:      req.Reason,
			ExpiryDate:  req.ExpiryDate,
		})
	}
	return id, nil
}

// CloseSanction deactivates any standing sanction of the given kind, used by
// the unban/unmute/untimeout paths before their reversal entry is recorded.
func (r *Recorder) CloseSanction(ctx context.Context, guildID, userID uint64, kind storage.Kind) error {
	return r.store.DeactivateByKind(ctx, guildID, userID, kind)
}

// ClearWarning deactivates a single warning entry by id. It verifies the
// entry exists, belongs to the guild, and is in fact a warning.
func (r *Recorder) ClearWarning(ctx context.Context, guildID uint64, id int64) error {
	entry, err := r.store.GetModeration(ctx, guildID, id)
	if err != nil {
		return err
	}
	if entry.Kind != storage.KindWarning {
		return &NotAWarningError{ID: id, Kind: entry.Kind}
	}
	return r.store.DeactivateByID(ctx, guildID, id)
}

// NotAWarningError reports an attempt to clear a ledger entry that is not a
// warning.
type NotAWarningError struct {
	ID   int64
	Kind storage.Kind
}

func (e *NotAWarningError) Error() string {
	return fmt.Sprintf("moderation %d is a %s, not a warning", e.ID, e.Kind)
}
