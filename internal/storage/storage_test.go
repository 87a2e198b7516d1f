package storage

import (
	"context"
	"testing"
)

func TestGuildSettingsUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.GetGuildSettings(ctx, 1)
	if err != nil {
		t.Fatalf("get settings for unknown guild: %v", err)
	}
	if settings.MuteRoleID != 0 || settings.LogsChannelID != 0 || settings.Prefix != "" {
		t.Fatalf("expected empty defaults, got %+v", settings)
	}

	if err := store.SetMuteRole(ctx, 1, 555); err != nil {
		t.Fatalf("set mute role: %v", err)
	}
	if err := store.SetLogsChannel(ctx, 1, 777); err != nil {
		t.Fatalf("set logs channel: %v", err)
	}
	if err := store.SetPrefix(ctx, 1, "!"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	settings, err = store.GetGuildSettings(ctx, 1)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.MuteRoleID != 555 || settings.LogsChannelID != 777 || settings.Prefix != "!" {
		t.Fatalf("unexpected settings %+v", settings)
	}

	// Updating one column leaves the others alone.
	if err := store.SetMuteRole(ctx, 1, 556); err != nil {
		t.Fatalf("update mute role: %v", err)
	}
	settings, err = store.GetGuildSettings(ctx, 1)
	if err != nil {
		t.Fatalf("get settings after update: %v", err)
	}
	if settings.MuteRoleID != 556 || settings.LogsChannelID != 777 {
		t.Fatalf("unexpected settings after update %+v", settings)
	}
}

func TestSnowflakeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Snowflakes above 1<<63 must survive the signed column.
	const big = uint64(1)<<63 + 12345
	if err := store.SetMuteRole(ctx, big, big); err != nil {
		t.Fatalf("set mute role: %v", err)
	}
	settings, err := store.GetGuildSettings(ctx, big)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.MuteRoleID != big {
		t.Fatalf("expected %d, got %d", big, settings.MuteRoleID)
	}

	id, err := store.InsertModeration(ctx, Moderation{
		GuildID:     big,
		UserID:      big + 1,
		ModeratorID: big + 2,
		Kind:        KindWarning,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("insert moderation: %v", err)
	}
	entry, err := store.GetModeration(ctx, big, id)
	if err != nil {
		t.Fatalf("get moderation: %v", err)
	}
	if entry.GuildID != big || entry.UserID != big+1 || entry.ModeratorID != big+2 {
		t.Fatalf("snowflakes did not round-trip: %+v", entry)
	}
}
