package engine

import (
	"context"

	"morningstar/internal/domain"
	"morningstar/internal/repo"
)

// JournalTail returns the newest journal events.
func (e Engine) JournalTail(ctx context.Context, limit int, evtType, entityKind string) ([]domain.Event, error) {
	if e.DB == nil {
		return nil, nil
	}
	return e.Repo.LatestEvents(ctx, limit, repo.EventFilters{Type: evtType, EntityKind: entityKind})
}

func (e Engine) SessionHistory(ctx context.Context, limit int) ([]domain.Session, error) {
	if e.DB == nil {
		return nil, nil
	}
	return e.Repo.ListSessions(ctx, limit)
}
