package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func insertEntry(t *testing.T, store *Store, guildID, userID uint64, kind Kind, expiry *time.Time) int64 {
	t.Helper()
	id, err := store.InsertModeration(context.Background(), Moderation{
		GuildID:        guildID,
		UserID:         userID,
		ModeratorID:    99,
		Kind:           kind,
		AdministeredAt: time.Now(),
		ExpiryDate:     expiry,
		Active:         kind.ActiveOnCreate(),
	})
	if err != nil {
		t.Fatalf("insert moderation: %v", err)
	}
	return id
}

func TestInsertAssignsPerGuildIDs(t *testing.T) {
	store := newTestStore(t)

	for i := 1; i <= 3; i++ {
		id := insertEntry(t, store, 1, 42, KindWarning, nil)
		if id != int64(i) {
			t.Fatalf("guild 1 insert %d: expected id %d, got %d", i, i, id)
		}
	}

	// A second guild starts its own sequence.
	if id := insertEntry(t, store, 2, 42, KindWarning, nil); id != 1 {
		t.Fatalf("guild 2 first insert: expected id 1, got %d", id)
	}
	if id := insertEntry(t, store, 1, 7, KindKick, nil); id != 4 {
		t.Fatalf("guild 1 fourth insert: expected id 4, got %d", id)
	}
}

func TestInsertSupersedesSameKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	first := insertEntry(t, store, 1, 42, KindBan, &expiry)
	second := insertEntry(t, store, 1, 42, KindBan, &expiry)

	kind := KindBan
	active, err := store.CountModerations(ctx, 1, 42, &kind, true)
	if err != nil {
		t.Fatalf("count active bans: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected exactly one active ban, got %d", active)
	}

	old, err := store.GetModeration(ctx, 1, first)
	if err != nil {
		t.Fatalf("get first ban: %v", err)
	}
	if old.Active {
		t.Fatal("first ban should have been deactivated")
	}
	current, err := store.GetModeration(ctx, 1, second)
	if err != nil {
		t.Fatalf("get second ban: %v", err)
	}
	if !current.Active {
		t.Fatal("second ban should be active")
	}
}

func TestInsertDoesNotCrossKinds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	insertEntry(t, store, 1, 42, KindMute, &expiry)
	insertEntry(t, store, 1, 42, KindBan, &expiry)

	mute := KindMute
	count, err := store.CountModerations(ctx, 1, 42, &mute, true)
	if err != nil {
		t.Fatalf("count active mutes: %v", err)
	}
	if count != 1 {
		t.Fatalf("ban should not deactivate a mute, active mutes = %d", count)
	}
}

func TestGetModerationNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetModeration(context.Background(), 1, 12345)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeactivateByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := insertEntry(t, store, 1, 42, KindWarning, nil)
	if err := store.DeactivateByID(ctx, 1, id); err != nil {
		t.Fatalf("deactivate by id: %v", err)
	}

	kind := KindWarning
	active, err := store.CountModerations(ctx, 1, 42, &kind, true)
	if err != nil {
		t.Fatalf("count active warnings: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected no active warnings, got %d", active)
	}

	// The row survives for audit retrieval.
	entry, err := store.GetModeration(ctx, 1, id)
	if err != nil {
		t.Fatalf("get cleared warning: %v", err)
	}
	if entry.Active {
		t.Fatal("cleared warning should be inactive")
	}
}

func TestFindAndDeactivateExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	insertEntry(t, store, 1, 42, KindBan, &past)
	insertEntry(t, store, 1, 43, KindMute, &past)
	insertEntry(t, store, 2, 44, KindBan, &future)

	expired, err := store.FindExpiredActive(ctx, now)
	if err != nil {
		t.Fatalf("find expired: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired sanctions, got %d", len(expired))
	}

	if err := store.DeactivateExpired(ctx, now); err != nil {
		t.Fatalf("deactivate expired: %v", err)
	}
	expired, err = store.FindExpiredActive(ctx, now)
	if err != nil {
		t.Fatalf("find expired after sweep: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no expired sanctions after sweep, got %d", len(expired))
	}

	kind := KindBan
	active, err := store.CountModerations(ctx, 2, 44, &kind, true)
	if err != nil {
		t.Fatalf("count future ban: %v", err)
	}
	if active != 1 {
		t.Fatal("unexpired ban should remain active")
	}
}

func TestListModerationsOrderAndReason(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertModeration(ctx, Moderation{
		GuildID:        1,
		UserID:         42,
		ModeratorID:    99,
		Kind:           KindWarning,
		AdministeredAt: time.Now(),
		Reason:         "spam",
		Active:         true,
	})
	if err != nil {
		t.Fatalf("insert warning: %v", err)
	}
	insertEntry(t, store, 1, 42, KindKick, nil)

	entries, err := store.ListModerations(ctx, 1, 42, nil, false, 10, 0)
	if err != nil {
		t.Fatalf("list moderations: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindKick || entries[1].Kind != KindWarning {
		t.Fatalf("expected most-recent-first order, got %v then %v", entries[0].Kind, entries[1].Kind)
	}
	if entries[1].Reason != "spam" {
		t.Fatalf("expected reason to round-trip, got %q", entries[1].Reason)
	}
	if entries[0].Active {
		t.Fatal("kick entries are never active")
	}
}

func TestKindFromInt(t *testing.T) {
	for tag := 0; tag <= 7; tag++ {
		kind, err := KindFromInt(tag)
		if err != nil {
			t.Fatalf("tag %d: unexpected error %v", tag, err)
		}
		if int(kind) != tag {
			t.Fatalf("tag %d decoded to %d", tag, int(kind))
		}
	}

	_, err := KindFromInt(8)
	var unknown *UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}
	if unknown.Tag != 8 {
		t.Fatalf("expected tag 8 in error, got %d", unknown.Tag)
	}
}
