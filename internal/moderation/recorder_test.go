package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"arbiter/internal/modlog"
	"arbiter/internal/storage"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func newTestRecorder(t *testing.T) (*Recorder, *storage.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewRecorder(store, modlog.NewNotifier(zap.NewNop())), store
}

func TestRecordActivityByKind(t *testing.T) {
	recorder, store := newTestRecorder(t)
	ctx := context.Background()

	cases := []struct {
		kind   storage.Kind
		active bool
	}{
		{storage.KindWarning, true},
		{storage.KindKick, false},
		{storage.KindMute, true},
		{storage.KindTimeout, true},
		{storage.KindBan, true},
		{storage.KindUnmute, false},
		{storage.KindUntimeout, false},
		{storage.KindUnban, false},
	}

	for _, tc := range cases {
		id, err := recorder.Record(ctx, RecordRequest{
			GuildID:     1,
			UserID:      42,
			ModeratorID: 99,
			Kind:        tc.kind,
		})
		if err != nil {
			t.Fatalf("record %s: %v", tc.kind, err)
		}
		entry, err := store.GetModeration(ctx, 1, id)
		if err != nil {
			t.Fatalf("get %s: %v", tc.kind, err)
		}
		if entry.Active != tc.active {
			t.Fatalf("%s: expected active=%t, got %t", tc.kind, tc.active, entry.Active)
		}
	}
}

func TestRecordSupersedesActiveBan(t *testing.T) {
	recorder, store := newTestRecorder(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := recorder.Record(ctx, RecordRequest{
			GuildID:     1,
			UserID:      42,
			ModeratorID: 99,
			Kind:        storage.KindBan,
			ExpiryDate:  &expiry,
		}); err != nil {
			t.Fatalf("record ban %d: %v", i, err)
		}
	}

	kind := storage.KindBan
	active, err := store.CountModerations(ctx, 1, 42, &kind, true)
	if err != nil {
		t.Fatalf("count active bans: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active ban after re-ban, got %d", active)
	}
}

func TestCloseSanction(t *testing.T) {
	recorder, store := newTestRecorder(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	if _, err := recorder.Record(ctx, RecordRequest{
		GuildID: 1, UserID: 42, ModeratorID: 99,
		Kind: storage.KindBan, ExpiryDate: &expiry,
	}); err != nil {
		t.Fatalf("record ban: %v", err)
	}

	if err := recorder.CloseSanction(ctx, 1, 42, storage.KindBan); err != nil {
		t.Fatalf("close sanction: %v", err)
	}
	if _, err := recorder.Record(ctx, RecordRequest{
		GuildID: 1, UserID: 42, ModeratorID: 99, Kind: storage.KindUnban,
	}); err != nil {
		t.Fatalf("record unban: %v", err)
	}

	kind := storage.KindBan
	active, err := store.CountModerations(ctx, 1, 42, &kind, true)
	if err != nil {
		t.Fatalf("count active bans: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected no active bans after unban, got %d", active)
	}
}

func TestClearWarning(t *testing.T) {
	recorder, store := newTestRecorder(t)
	ctx := context.Background()

	warnID, err := recorder.Record(ctx, RecordRequest{
		GuildID: 1, UserID: 42, ModeratorID: 99,
		Kind: storage.KindWarning, Reason: "spam",
	})
	if err != nil {
		t.Fatalf("record warning: %v", err)
	}
	kickID, err := recorder.Record(ctx, RecordRequest{
		GuildID: 1, UserID: 42, ModeratorID: 99, Kind: storage.KindKick,
	})
	if err != nil {
		t.Fatalf("record kick: %v", err)
	}

	if err := recorder.ClearWarning(ctx, 1, warnID); err != nil {
		t.Fatalf("clear warning: %v", err)
	}

	var notAWarning *NotAWarningError
	if err := recorder.ClearWarning(ctx, 1, kickID); !errors.As(err, &notAWarning) {
		t.Fatalf("expected NotAWarningError for kick entry, got %v", err)
	}
	if err := recorder.ClearWarning(ctx, 1, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing entry, got %v", err)
	}
	if err := recorder.ClearWarning(ctx, 2, warnID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong guild, got %v", err)
	}

	kind := storage.KindWarning
	active, err := store.CountModerations(ctx, 1, 42, &kind, true)
	if err != nil {
		t.Fatalf("count active warnings: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected no active warnings, got %d", active)
	}

	entry, err := store.GetModeration(ctx, 1, warnID)
	if err != nil {
		t.Fatalf("cleared warning should still exist: %v", err)
	}
	if entry.Reason != "spam" {
		t.Fatalf("expected audit row to keep its reason, got %q", entry.Reason)
	}
}
