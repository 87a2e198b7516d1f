package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a lookup targets a row that does not exist.
var ErrNotFound = errors.New("storage: not found")

type Store struct {
	db *sql.DB
}

// GuildSettings holds per-guild configuration. Zero ids mean "not set".
type GuildSettings struct {
	GuildID       uint64
	MuteRoleID    uint64
	LogsChannelID uint64
	Prefix        string
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID uint64) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mute_role_id, logs_channel_id, prefix
		FROM guild_settings WHERE guild_id = ?`, int64(guildID))

	result := GuildSettings{GuildID: guildID}

	var muteRole, logsChannel sql.NullInt64
	var prefix sql.NullString
	err := row.Scan(&muteRole, &logsChannel, &prefix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	if muteRole.Valid {
		result.MuteRoleID = uint64(muteRole.Int64)
	}
	if logsChannel.Valid {
		result.LogsChannelID = uint64(logsChannel.Int64)
	}
	if prefix.Valid {
		result.Prefix = prefix.String
	}
	return result, nil
}

func (s *Store) SetMuteRole(ctx context.Context, guildID, roleID uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, mute_role_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET mute_role_id = excluded.mute_role_id
	`, int64(guildID), int64(roleID))
	return err
}

func (s *Store) SetLogsChannel(ctx context.Context, guildID, channelID uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, logs_channel_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET logs_channel_id = excluded.logs_channel_id
	`, int64(guildID), int64(channelID))
	return err
}

func (s *Store) SetPrefix(ctx context.Context, guildID uint64, prefix string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, prefix) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET prefix = excluded.prefix
	`, int64(guildID), prefix)
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
