package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"morningstar/internal/backup"
	"morningstar/internal/changelog"
	"morningstar/internal/config"
	"morningstar/internal/domain"
	"morningstar/internal/events"
	"morningstar/internal/logging"
	"morningstar/internal/repo"
	"morningstar/internal/schema"
	"morningstar/internal/statedoc"
)

// ErrStateExists is returned by Init when a state document is already present.
var ErrStateExists = errors.New("state document already exists")

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	State     *statedoc.Store
	Changelog *changelog.Chronicle
	Backups   *backup.Manager
	Sessions  string
	Strict    bool
	Now       func() time.Time
	Log       *slog.Logger
}

// New wires an engine for a workspace. db may be nil, in which case nothing
// is journaled.
func New(db *sql.DB, cfg *config.Config, workspace string) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	statePath := config.Resolve(workspace, cfg.Paths.State)
	chron := changelog.New(config.Resolve(workspace, cfg.Paths.Changelog))
	chron.Sources = cfg.Changelog.Sources
	e := Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Events:    events.Writer{DB: db},
		Config:    cfg,
		State:     statedoc.NewStore(statePath),
		Changelog: chron,
		Backups: &backup.Manager{
			Dir:       config.Resolve(workspace, cfg.Paths.Backups),
			StateDir:  filepath.Dir(statePath),
			Changelog: chron.Path,
		},
		Sessions: config.Resolve(workspace, cfg.Paths.Sessions),
		Strict:   cfg.Read.Strict,
		Log:      logging.New("engine"),
	}
	return e.WithClock(time.Now)
}

// WithClock returns a copy of e whose components all read time from now.
func (e Engine) WithClock(now func() time.Time) Engine {
	e.Now = now
	e.Events.Now = now
	if e.State != nil {
		st := *e.State
		st.Now = now
		e.State = &st
	}
	if e.Changelog != nil {
		c := *e.Changelog
		c.Now = now
		e.Changelog = &c
	}
	if e.Backups != nil {
		b := *e.Backups
		b.Now = now
		e.Backups = &b
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logging.Discard()
}

// record appends to the journal. Journal failures never fail the document
// operation that produced them.
func (e Engine) record(ctx context.Context, evtType, entityKind, entityID string, payload events.EventPayload) {
	if e.DB == nil {
		return
	}
	if err := e.Events.Record(ctx, evtType, entityKind, entityID, payload); err != nil {
		e.log().Warn("journal append failed", "type", evtType, "err", err)
	}
}

// Load reads the state document, logging any parse warnings.
func (e Engine) Load(ctx context.Context) (domain.State, error) {
	st, err := e.State.Load(e.Strict)
	if err != nil {
		return st, err
	}
	if len(st.ParseWarnings) > 0 {
		l := logging.New("statedoc")
		for _, w := range st.ParseWarnings {
			l.Warn("state document drift", "path", e.State.Path, "warning", w)
		}
	}
	return st, nil
}

func (e Engine) save(ctx context.Context, st domain.State, evtType string, payload events.EventPayload) error {
	if err := e.State.Save(st); err != nil {
		return err
	}
	e.record(ctx, evtType, "state", e.State.Path, payload)
	return nil
}

// Init creates a fresh state document and makes sure the changelog exists.
// An existing document is only replaced when force is set.
func (e Engine) Init(ctx context.Context, force bool) (domain.State, error) {
	exists, err := e.State.Exists()
	if err != nil {
		return domain.State{}, err
	}
	if exists && !force {
		return domain.State{}, fmt.Errorf("%w: %s", ErrStateExists, e.State.Path)
	}
	st, err := e.State.Init()
	if err != nil {
		return domain.State{}, err
	}
	if _, err := e.Changelog.Read(); err != nil {
		return domain.State{}, err
	}
	e.record(ctx, events.StateInit, "state", e.State.Path, events.EventPayload{"forced": exists})
	return st, nil
}

// ValidationReport combines the structural validator with the schema check.
type ValidationReport struct {
	Valid       bool     `json:"valid"`
	Violations  []string `json:"violations"`
	SchemaValid bool     `json:"schema_valid"`
	SchemaError string   `json:"schema_error,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// OK reports whether both checks passed.
func (r ValidationReport) OK() bool { return r.Valid && r.SchemaValid }

// Validate checks the stored document. Parsing is always lenient here so
// that drift shows up as warnings in the report instead of aborting it.
func (e Engine) Validate(ctx context.Context) (ValidationReport, error) {
	st, err := e.State.Load(false)
	if err != nil {
		return ValidationReport{}, err
	}
	ok, violations := statedoc.Validate(st)
	if violations == nil {
		violations = []string{}
	}
	rep := ValidationReport{Valid: ok, Violations: violations, Warnings: st.ParseWarnings}
	rep.SchemaValid, err = schema.Validate(st, schema.State)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownSchema) {
			return rep, err
		}
		rep.SchemaError = err.Error()
	}
	return rep, nil
}

// RepairResult describes what Repair changed.
type RepairResult struct {
	State    domain.State `json:"state"`
	Fixed    []string     `json:"fixed"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Repair rewrites the stored document in repaired canonical form.
func (e Engine) Repair(ctx context.Context) (RepairResult, error) {
	st, err := e.State.Load(false)
	if err != nil {
		return RepairResult{}, err
	}
	_, violations := statedoc.Validate(st)
	fixed := statedoc.Repair(st)
	if err := e.save(ctx, fixed, events.StateRepair, events.EventPayload{
		"violations": len(violations),
		"warnings":   len(st.ParseWarnings),
	}); err != nil {
		return RepairResult{}, err
	}
	if violations == nil {
		violations = []string{}
	}
	return RepairResult{State: fixed, Fixed: violations, Warnings: st.ParseWarnings}, nil
}
