package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Moderation is one row of the per-guild moderation ledger. Rows are append
// only; the only mutation ever applied is flipping Active to false.
type Moderation struct {
	ID             int64
	GuildID        uint64
	UserID         uint64
	ModeratorID    uint64
	Kind           Kind
	AdministeredAt time.Time
	ExpiryDate     *time.Time
	Reason         string
	Active         bool
}

// ExpiredSanction identifies an active timed sanction whose expiry has passed.
type ExpiredSanction struct {
	GuildID uint64
	UserID  uint64
	Kind    Kind
}

// InsertModeration assigns the next per-guild id and persists the entry. For
// timed kinds it first deactivates any active entry of the same kind for the
// same user, inside the same transaction, so a re-ban supersedes rather than
// stacks and ids never collide under concurrent inserts.
func (s *Store) InsertModeration(ctx context.Context, entry Moderation) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if entry.Kind.Timed() {
		_, err = tx.ExecContext(ctx, `
			UPDATE moderations SET active = 0
			WHERE guild_id = ? AND user_id = ? AND kind = ? AND active = 1
		`, int64(entry.GuildID), int64(entry.UserID), int(entry.Kind))
		if err != nil {
			return 0, err
		}
	}

	var id int64
	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) + 1 FROM moderations WHERE guild_id = ?
	`, int64(entry.GuildID))
	if err = row.Scan(&id); err != nil {
		return 0, err
	}

	var expiry any
	if entry.ExpiryDate != nil {
		expiry = entry.ExpiryDate.Unix()
	}
	var reason any
	if entry.Reason != "" {
		reason = entry.Reason
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moderations
		(guild_id, id, user_id, moderator_id, kind, administered_at, expiry_date, reason, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(entry.GuildID),
		id,
		int64(entry.UserID),
		int64(entry.ModeratorID),
		int(entry.Kind),
		entry.AdministeredAt.Unix(),
		expiry,
		reason,
		boolToInt(entry.Active),
	)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// DeactivateByKind closes out every active entry of the given kind for the
// user, e.g. when an unban or unmute supersedes the standing sanction.
func (s *Store) DeactivateByKind(ctx context.Context, guildID, userID uint64, kind Kind) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE moderations SET active = 0
		WHERE guild_id = ? AND user_id = ? AND kind = ? AND active = 1
	`, int64(guildID), int64(userID), int(kind))
	return err
}

// DeactivateByID clears exactly one entry, identified by its per-guild id.
func (s *Store) DeactivateByID(ctx context.Context, guildID uint64, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE moderations SET active = 0 WHERE guild_id = ? AND id = ?
	`, int64(guildID), id)
	return err
}

func (s *Store) GetModeration(ctx context.Context, guildID uint64, id int64) (Moderation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, id, user_id, moderator_id, kind, administered_at, expiry_date, reason, active
		FROM moderations WHERE guild_id = ? AND id = ?
	`, int64(guildID), id)

	entry, err := scanModeration(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Moderation{}, ErrNotFound
		}
		return Moderation{}, err
	}
	return entry, nil
}

// CountModerations counts ledger rows for a user. kindFilter narrows to one
// kind when non-nil; activeOnly restricts to rows still in effect.
func (s *Store) CountModerations(ctx context.Context, guildID, userID uint64, kindFilter *Kind, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM moderations WHERE guild_id = ? AND user_id = ?`
	args := []any{int64(guildID), int64(userID)}
	if kindFilter != nil {
		query += ` AND kind = ?`
		args = append(args, int(*kindFilter))
	}
	if activeOnly {
		query += ` AND active = 1`
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListModerations returns rows most-recent-first by id.
func (s *Store) ListModerations(ctx context.Context, guildID, userID uint64, kindFilter *Kind, activeOnly bool, limit, offset int) ([]Moderation, error) {
	query := `
		SELECT guild_id, id, user_id, moderator_id, kind, administered_at, expiry_date, reason, active
		FROM moderations WHERE guild_id = ? AND user_id = ?`
	args := []any{int64(guildID), int64(userID)}
	if kindFilter != nil {
		query += ` AND kind = ?`
		args = append(args, int(*kindFilter))
	}
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Moderation
	for rows.Next() {
		entry, err := scanModeration(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindExpiredActive returns the identity of every active sanction whose
// expiry date lies strictly before now.
func (s *Store) FindExpiredActive(ctx context.Context, now time.Time) ([]ExpiredSanction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, kind FROM moderations
		WHERE active = 1 AND expiry_date IS NOT NULL AND expiry_date < ?
	`, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []ExpiredSanction
	for rows.Next() {
		var guildID, userID int64
		var tag int
		if err := rows.Scan(&guildID, &userID, &tag); err != nil {
			return nil, err
		}
		kind, err := KindFromInt(tag)
		if err != nil {
			return nil, fmt.Errorf("expired sanction guild %d user %d: %w", guildID, userID, err)
		}
		expired = append(expired, ExpiredSanction{
			GuildID: uint64(guildID),
			UserID:  uint64(userID),
			Kind:    kind,
		})
	}
	return expired, rows.Err()
}

// DeactivateExpired bulk-closes every row whose expiry date has passed,
// whether or not its compensating action succeeded.
func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE moderations SET active = 0
		WHERE expiry_date IS NOT NULL AND expiry_date < ?
	`, now.Unix())
	return err
}

func scanModeration(scan func(dest ...any) error) (Moderation, error) {
	var entry Moderation
	var guildID, userID, moderatorID, administeredAt int64
	var tag, active int
	var expiry sql.NullInt64
	var reason sql.NullString

	err := scan(&guildID, &entry.ID, &userID, &moderatorID, &tag, &administeredAt, &expiry, &reason, &active)
	if err != nil {
		return Moderation{}, err
	}

	kind, err := KindFromInt(tag)
	if err != nil {
		return Moderation{}, err
	}

	entry.GuildID = uint64(guildID)
	entry.UserID = uint64(userID)
	entry.ModeratorID = uint64(moderatorID)
	entry.Kind = kind
	entry.AdministeredAt = time.Unix(administeredAt, 0)
	if expiry.Valid {
		value := time.Unix(expiry.Int64, 0)
		entry.ExpiryDate = &value
	}
	if reason.Valid {
		entry.Reason = reason.String
	}
	entry.Active = active == 1
	return entry, nil
}
