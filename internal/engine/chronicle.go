package engine

import (
	"context"
	"fmt"
	"strings"

	"morningstar/internal/changelog"
	"morningstar/internal/domain"
	"morningstar/internal/events"
)

func (e Engine) LogShow(ctx context.Context) (changelog.Summary, error) {
	return e.Changelog.Summary()
}

func (e Engine) LogAdd(ctx context.Context, category, description, source string) (changelog.Entry, error) {
	if strings.TrimSpace(description) == "" {
		return changelog.Entry{}, fmt.Errorf("description is required")
	}
	if strings.TrimSpace(category) == "" {
		category = changelog.Added
	}
	en := changelog.Entry{Category: category, Description: description, Source: source}
	return en, e.appendChangelog(ctx, en)
}

func (e Engine) LogDecide(ctx context.Context, d domain.Decision) (changelog.Entry, error) {
	if strings.TrimSpace(d.Topic) == "" {
		return changelog.Entry{}, fmt.Errorf("topic is required")
	}
	en := e.Changelog.DecisionEntry(d)
	return en, e.appendChangelog(ctx, en)
}

func (e Engine) LogVindicate(ctx context.Context, prediction, outcome string) (changelog.Entry, error) {
	if strings.TrimSpace(prediction) == "" {
		return changelog.Entry{}, fmt.Errorf("prediction is required")
	}
	en := e.Changelog.VindicationEntry(prediction, outcome)
	return en, e.appendChangelog(ctx, en)
}

// Release versions the Unreleased section. changelog.ErrNoUnreleased is
// passed through untouched so callers can report it as a no-op.
func (e Engine) Release(ctx context.Context, version, date string) error {
	if err := e.Changelog.Release(version, date); err != nil {
		return err
	}
	e.record(ctx, events.ChangelogRelease, "changelog", version, events.EventPayload{"date": date})
	return nil
}
