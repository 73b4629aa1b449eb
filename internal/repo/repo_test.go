package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"morningstar/internal/db"
	"morningstar/internal/domain"
	"morningstar/internal/events"
	"morningstar/internal/migrate"
)

func setup(t *testing.T) (Repo, events.Writer) {
	t.Helper()
	conn, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return Repo{DB: conn}, events.Writer{DB: conn, Now: func() time.Time { return now }}
}

func TestEventsNewestFirstAndFiltered(t *testing.T) {
	ctx := context.Background()
	r, w := setup(t)
	if err := w.Record(ctx, events.StateInit, "state", "state/current.md", nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Record(ctx, events.ChangelogAdd, "changelog", "CHANGELOG.md", events.EventPayload{"category": "added"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Record(ctx, events.StateWrite, "state", "", nil); err != nil {
		t.Fatal(err)
	}

	evs, err := r.LatestEvents(ctx, 10, EventFilters{})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(evs) != 3 || evs[0].Type != events.StateWrite || evs[2].Type != events.StateInit {
		t.Fatalf("order = %+v", evs)
	}
	if evs[0].EntityID != "" || evs[0].Payload != "{}" || evs[0].TS != "2024-03-01T09:30:00Z" {
		t.Fatalf("row = %+v", evs[0])
	}

	evs, err = r.LatestEvents(ctx, 10, EventFilters{EntityKind: "state"})
	if err != nil || len(evs) != 2 {
		t.Fatalf("filtered = %+v, %v", evs, err)
	}
	after, err := r.EventsAfter(ctx, 10, evs[1].ID)
	if err != nil || len(after) != 2 || after[0].Type != events.ChangelogAdd {
		t.Fatalf("after = %+v, %v", after, err)
	}
	last, err := r.LatestEventID(ctx)
	if err != nil || last != after[1].ID {
		t.Fatalf("LatestEventID = %d, %v", last, err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	r, _ := setup(t)
	if _, err := r.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session err = %v", err)
	}
	older := domain.Session{ID: "a", EndedAt: "2024-03-01T09:00:00Z", ReportPath: "sessions/a.md", Decisions: 1}
	newer := domain.Session{ID: "b", EndedAt: "2024-03-02T09:00:00Z", ReportPath: "sessions/b.md", Entries: 3}
	for _, s := range []domain.Session{older, newer} {
		if err := r.InsertSession(ctx, s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	got, err := r.GetSession(ctx, "b")
	if err != nil || got != newer {
		t.Fatalf("GetSession = %+v, %v", got, err)
	}
	list, err := r.ListSessions(ctx, 0)
	if err != nil || len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("ListSessions = %+v, %v", list, err)
	}
}
