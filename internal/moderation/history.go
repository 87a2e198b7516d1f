package moderation

import (
	"context"
	"fmt"

	"arbiter/internal/storage"
)

// DefaultPageSize matches the page size used by the history commands.
const DefaultPageSize = 10

// PageOutOfBoundsError reports a request beyond the available history.
type PageOutOfBoundsError struct {
	Requested int
	Max       int
}

func (e *PageOutOfBoundsError) Error() string {
	return fmt.Sprintf("page %d requested but maximum page is %d", e.Requested, e.Max)
}

// HistoryPage is one slice of a user's moderation history, most recent first.
type HistoryPage struct {
	Entries []storage.Moderation
	Page    int
	MaxPage int
	Total   int
}

// History serves read-only, paginated views over the ledger.
type History struct {
	store *storage.Store
}

func NewHistory(store *storage.Store) *History {
	return &History{store: store}
}

// Modlogs returns a page of the full moderation history for a user.
func (h *History) Modlogs(ctx context.Context, guildID, userID uint64, page, pageSize int) (HistoryPage, error) {
	return h.page(ctx, guildID, userID, nil, false, page, pageSize)
}

// Warnings returns a page of the user's active warnings.
func (h *History) Warnings(ctx context.Context, guildID, userID uint64, page, pageSize int) (HistoryPage, error) {
	kind := storage.KindWarning
	return h.page(ctx, guildID, userID, &kind, true, page, pageSize)
}

// ActiveCount reports how many entries of one kind are currently in effect.
func (h *History) ActiveCount(ctx context.Context, guildID, userID uint64, kind storage.Kind) (int, error) {
	return h.store.CountModerations(ctx, guildID, userID, &kind, true)
}

func (h *History) page(ctx context.Context, guildID, userID uint64, kindFilter *storage.Kind, activeOnly bool, page, pageSize int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total, err := h.store.CountModerations(ctx, guildID, userID, kindFilter, activeOnly)
	if err != nil {
		return HistoryPage{}, err
	}

	maxPage := (total + pageSize - 1) / pageSize
	if maxPage < 1 {
		maxPage = 1
	}

	offset := (page - 1) * pageSize
	if offset > total {
		return HistoryPage{}, &PageOutOfBoundsError{Requested: page, Max: maxPage}
	}

	entries, err := h.store.ListModerations(ctx, guildID, userID, kindFilter, activeOnly, pageSize, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Entries: entries, Page: page, MaxPage: maxPage, Total: total}, nil
}
