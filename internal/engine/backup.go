package engine

import (
	"context"

	"morningstar/internal/domain"
	"morningstar/internal/events"
)

func (e Engine) BackupCreate(ctx context.Context, description string) (domain.Backup, error) {
	b, err := e.Backups.Create(description)
	if err != nil {
		return b, err
	}
	e.record(ctx, events.BackupCreate, "backup", b.Name, events.EventPayload{"description": b.Description, "files": b.FileCount})
	return b, nil
}

func (e Engine) BackupList(ctx context.Context) ([]domain.Backup, error) {
	return e.Backups.List()
}

// BackupRestore restores a backup after taking a safety backup.
func (e Engine) BackupRestore(ctx context.Context, id string) (restored, safety domain.Backup, err error) {
	restored, safety, err = e.Backups.Restore(id)
	if safety.Name != "" {
		e.record(ctx, events.BackupCreate, "backup", safety.Name, events.EventPayload{"description": safety.Description, "files": safety.FileCount})
	}
	if err != nil {
		return restored, safety, err
	}
	e.record(ctx, events.BackupRestore, "backup", restored.Name, events.EventPayload{"safety_backup": safety.Name})
	return restored, safety, nil
}

func (e Engine) BackupDelete(ctx context.Context, id string) (domain.Backup, error) {
	b, err := e.Backups.Delete(id)
	if err != nil {
		return b, err
	}
	e.record(ctx, events.BackupDelete, "backup", b.Name, nil)
	return b, nil
}

// BackupPrune keeps the newest keep backups; keep <= 0 uses the configured value.
func (e Engine) BackupPrune(ctx context.Context, keep int) ([]domain.Backup, error) {
	if keep <= 0 {
		keep = e.Config.Backup.Keep
	}
	removed, err := e.Backups.Prune(keep)
	names := make([]string, 0, len(removed))
	for _, b := range removed {
		names = append(names, b.Name)
	}
	if len(removed) > 0 {
		e.record(ctx, events.BackupPrune, "backup", "", events.EventPayload{"keep": keep, "removed": names})
	}
	return removed, err
}
